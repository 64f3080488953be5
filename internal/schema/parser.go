package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/dswarm/dswarm/internal/tree"
)

const textKey = "#text"

// DecodeInstance parses a JSON instance document into generic values.
func DecodeInstance(raw []byte) (any, error) {
	v, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	return v, nil
}

// ParseDocument parses an instance document whose root value is keyed by the
// schema title. It returns nil when the root value is missing.
func ParseDocument(def *Definition, doc any) *tree.Node {
	if def == nil || doc == nil {
		return nil
	}
	root := doc
	if def.Title != "" {
		root = jp.C(def.Title).First(doc)
		if root == nil {
			return nil
		}
	}
	return ParseAny(root, def.Title, def)
}

// ParseAny projects instance onto def. Shape mismatches yield nil.
func ParseAny(instance any, name string, def *Definition) *tree.Node {
	switch def.Kind() {
	case KindObject:
		return parseObject(instance, name, def)
	case KindArray:
		return parseArray(instance, name, def.Items)
	case KindString:
		return parseString(instance, name)
	case KindEnum:
		return parseEnum(instance, name, def.Enum)
	}
	return nil
}

func parseObject(instance any, name string, def *Definition) *tree.Node {
	obj, _ := instance.(map[string]any)
	var children []*tree.Node
	def.EachProperty(func(key string, sub *Definition) {
		if obj == nil {
			return
		}
		v, ok := obj[key]
		if !ok || !truthy(v) {
			return
		}
		if n := ParseAny(v, key, sub); n != nil {
			children = append(children, n)
		}
	})
	return tree.MakeItem(name, children, "")
}

func parseArray(instance any, name string, items *Definition) *tree.Node {
	var children []*tree.Node
	for _, el := range asSequence(instance) {
		if n := ParseAny(el, name, items); n != nil {
			children = append(children, n)
		}
	}
	return tree.MakeItem(name, children, "")
}

func parseString(instance any, name string) *tree.Node {
	if n := parseText(instance, name); n != nil {
		return n
	}
	list, ok := instance.([]any)
	if !ok {
		return nil
	}
	var children []*tree.Node
	for _, el := range list {
		if n := parseText(el, name); n != nil {
			children = append(children, n)
		}
	}
	return tree.MakeItem(name, children, "")
}

// parseText handles a plain string or an element carrying #text.
func parseText(instance any, name string) *tree.Node {
	switch v := instance.(type) {
	case string:
		return tree.MakeItem(name, nil, strings.TrimSpace(v), tree.AsLeaf())
	case map[string]any:
		text, ok := v[textKey].(string)
		if !ok {
			return nil
		}
		if text = strings.TrimSpace(text); text == "" {
			return nil
		}
		return tree.MakeItem(name, nil, text, tree.AsLeaf())
	}
	return nil
}

func parseEnum(instance any, name string, values Enum) *tree.Node {
	if instance == nil || !values.Contains(instance) {
		return nil
	}
	return tree.MakeItem(name, nil, scalarString(instance))
}

// Contains reports whether v is one of the declared values.
func (e Enum) Contains(v any) bool {
	for _, want := range e {
		if sameValue(want, v) {
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	if ia, ok := toInt(a); ok {
		if ib, ok := toInt(b); ok {
			return ia == ib
		}
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toInt reports integral values exactly, where float64 would round.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func scalarString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case json.Number:
		return n.String()
	case uint:
		return strconv.FormatUint(uint64(n), 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if i, ok := toInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return fmt.Sprint(v)
}

func asSequence(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	}
	return []any{v}
}

// truthy treats nil, false, zero and the empty string as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
