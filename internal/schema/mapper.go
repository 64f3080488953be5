package schema

import "github.com/dswarm/dswarm/internal/tree"

// Map converts a definition into a browsing tree of every declared field.
// No instance data is involved; nodes without properties stay childless.
func Map(name string, def *Definition, editableTitle bool) *tree.Node {
	var children []*tree.Node
	def.EachProperty(func(key string, sub *Definition) {
		children = append(children, Map(key, sub, editableTitle))
	})
	return tree.MakeItem(name, children, "", tree.Editable(editableTitle))
}

// MapDocument maps a whole schema document under its title.
func MapDocument(def *Definition, editableTitle bool) *tree.Node {
	if def == nil {
		return nil
	}
	return Map(def.Title, def, editableTitle)
}
