package tree

// Node is the uniform item rendered by the schema and instance trees.
// A node carries either children or a title, never both.
type Node struct {
	Name          string  `json:"name"`
	Show          bool    `json:"show"`
	Children      []*Node `json:"children,omitempty"`
	Title         string  `json:"title,omitempty"`
	Leaf          bool    `json:"leaf,omitempty"`
	EditableTitle bool    `json:"editableTitle,omitempty"`
}

// Option adjusts a node built by MakeItem.
type Option func(*Node)

// AsLeaf marks the node as a content-bearing leaf.
func AsLeaf() Option {
	return func(n *Node) { n.Leaf = true }
}

// Editable sets the editable-title affordance.
func Editable(v bool) Option {
	return func(n *Node) { n.EditableTitle = v }
}

// MakeItem builds an expanded node. Children are attached only when there is
// at least one; the title only when it is non-empty and no children were attached.
func MakeItem(name string, children []*Node, title string, opts ...Option) *Node {
	n := &Node{Name: name, Show: true}
	if len(children) > 0 {
		n.Children = children
	} else if title != "" {
		n.Title = title
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// IsEmpty reports whether the node has neither children nor a title.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	return len(n.Children) == 0 && n.Title == ""
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, c := range n.Children {
		if c != nil && c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Walk visits n and its descendants depth-first in render order.
// Returning false from fn skips the node's subtree.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Prune returns a copy of n without empty non-leaf descendants.
// Parsers keep empty nodes; renderers that do not want them call this.
func Prune(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Children = nil
	for _, c := range n.Children {
		pc := Prune(c)
		if pc == nil || (pc.IsEmpty() && !pc.Leaf) {
			continue
		}
		out.Children = append(out.Children, pc)
	}
	return &out
}

// SetShow sets the expansion state of n and all descendants.
func SetShow(n *Node, show bool) {
	Walk(n, func(c *Node, _ int) bool {
		c.Show = show
		return true
	})
}
