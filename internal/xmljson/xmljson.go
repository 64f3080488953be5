// Package xmljson flattens XML documents into the generic value shape the
// instance parser reads: attributes under "@name", character data under
// "#text" and repeated elements as arrays.
package xmljson

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	AttrPrefix = "@"
	TextKey    = "#text"
)

var ErrEmptyDocument = errors.New("xmljson: document has no root element")

type element struct {
	name   string
	fields map[string]any
	text   strings.Builder
}

// Convert reads one XML document and returns {rootName: value}.
// Elements with neither attributes nor children collapse to their trimmed text.
func Convert(r io.Reader) (map[string]any, error) {
	dec := xml.NewDecoder(r)

	var stack []*element
	var root map[string]any
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("xmljson: %w", err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			el := &element{name: qualified(tok.Name), fields: map[string]any{}}
			for _, a := range tok.Attr {
				el.fields[AttrPrefix+qualified(a.Name)] = a.Value
			}
			stack = append(stack, el)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(tok)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmljson: unexpected end element %q", qualified(tok.Name))
			}
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			value := el.value()
			if len(stack) == 0 {
				if root == nil {
					root = map[string]any{el.name: value}
				}
				continue
			}
			addChild(stack[len(stack)-1].fields, el.name, value)
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("xmljson: unclosed element %q", stack[len(stack)-1].name)
	}
	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// ConvertBytes is Convert over an in-memory document.
func ConvertBytes(raw []byte) (map[string]any, error) {
	return Convert(bytes.NewReader(raw))
}

func (e *element) value() any {
	text := strings.TrimSpace(e.text.String())
	if len(e.fields) == 0 {
		return text
	}
	if text != "" {
		e.fields[TextKey] = text
	}
	return e.fields
}

func addChild(fields map[string]any, name string, value any) {
	prev, ok := fields[name]
	if !ok {
		fields[name] = value
		return
	}
	if list, ok := prev.([]any); ok {
		fields[name] = append(list, value)
		return
	}
	fields[name] = []any{prev, value}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
