package schema

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Kind is the shape a definition describes.
type Kind string

const (
	KindUnknown Kind = ""
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindEnum    Kind = "enum"
)

// Properties keeps object members in declaration order.
type Properties = orderedmap.OrderedMap[string, *Definition]

// Definition is a declarative description of a document's shape.
// Definitions handed out by a Registry are shared and must not be mutated.
type Definition struct {
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Type       string      `json:"type,omitempty" yaml:"type,omitempty"`
	Properties *Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *Definition `json:"items,omitempty" yaml:"items,omitempty"`
	Enum       Enum        `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// Kind resolves which parser applies. Type takes precedence over enum.
func (d *Definition) Kind() Kind {
	if d == nil {
		return KindUnknown
	}
	switch d.Type {
	case string(KindObject):
		return KindObject
	case string(KindArray):
		return KindArray
	case string(KindString):
		return KindString
	}
	if d.Enum != nil {
		return KindEnum
	}
	return KindUnknown
}

// EachProperty calls fn for every declared property in order.
func (d *Definition) EachProperty(fn func(key string, def *Definition)) {
	if d == nil || d.Properties == nil {
		return
	}
	for p := d.Properties.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// Property returns the definition of a declared property.
func (d *Definition) Property(key string) (*Definition, bool) {
	if d == nil || d.Properties == nil {
		return nil, false
	}
	return d.Properties.Get(key)
}

// NewObject builds an object definition from key/definition pairs, keeping their order.
func NewObject(title string, pairs ...orderedmap.Pair[string, *Definition]) *Definition {
	props := orderedmap.New[string, *Definition](orderedmap.WithInitialData(pairs...))
	return &Definition{Title: title, Type: string(KindObject), Properties: props}
}

// Prop is a shorthand for building ordered property pairs.
func Prop(key string, def *Definition) orderedmap.Pair[string, *Definition] {
	return orderedmap.Pair[string, *Definition]{Key: key, Value: def}
}

// String returns a string definition.
func String() *Definition { return &Definition{Type: string(KindString)} }

// ArrayOf returns an array definition over items.
func ArrayOf(items *Definition) *Definition {
	return &Definition{Type: string(KindArray), Items: items}
}

// EnumOf returns an enum definition over values.
func EnumOf(values ...any) *Definition {
	return &Definition{Enum: Enum(values)}
}

// Enum is the declared value set of an enum definition.
// A scalar in the source document is read as a one-element set.
type Enum []any

func (e *Enum) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []any{}
		}
		*e = list
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("enum: %w", err)
	}
	*e = Enum{single}
	return nil
}

func (e *Enum) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		list := []any{}
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("enum: %w", err)
		}
		*e = list
		return nil
	}
	var single any
	if err := value.Decode(&single); err != nil {
		return fmt.Errorf("enum: %w", err)
	}
	*e = Enum{single}
	return nil
}

// LoadJSON decodes a JSON schema document.
func LoadJSON(raw []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode json schema: %w", err)
	}
	return &def, nil
}

// LoadYAML decodes a YAML schema document.
func LoadYAML(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode yaml schema: %w", err)
	}
	return &def, nil
}

// Load picks the decoder from the document name's extension. JSON is the default.
func Load(name string, raw []byte) (*Definition, error) {
	if isYAML(name) {
		return LoadYAML(raw)
	}
	return LoadJSON(raw)
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
