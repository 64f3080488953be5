package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarm/dswarm/internal/tree"
)

const oaiSchemaJSON = `{
  "title": "OAI-PMH",
  "type": "object",
  "properties": {
    "responseDate": {"type": "string"},
    "request": {"type": "object", "properties": {"@verb": {"type": "string"}, "#text": {"type": "string"}}},
    "ListRecords": {"type": "object", "properties": {
      "record": {"type": "array", "items": {"type": "object", "properties": {
        "header": {"type": "object", "properties": {"identifier": {"type": "string"}}},
        "status": {"enum": ["deleted", "active"]}
      }}}
    }},
    "error": {"type": "string"}
  }
}`

func TestLoadJSONKeepsPropertyOrder(t *testing.T) {
	def, err := LoadJSON([]byte(oaiSchemaJSON))
	require.NoError(t, err)
	assert.Equal(t, "OAI-PMH", def.Title)
	assert.Equal(t, KindObject, def.Kind())

	var keys []string
	def.EachProperty(func(key string, _ *Definition) { keys = append(keys, key) })
	assert.Equal(t, []string{"responseDate", "request", "ListRecords", "error"}, keys)

	records, ok := def.Property("ListRecords")
	require.True(t, ok)
	record, ok := records.Property("record")
	require.True(t, ok)
	assert.Equal(t, KindArray, record.Kind())
	status, ok := record.Items.Property("status")
	require.True(t, ok)
	assert.Equal(t, KindEnum, status.Kind())
	assert.Equal(t, Enum{"deleted", "active"}, status.Enum)
}

func TestLoadYAMLKeepsPropertyOrder(t *testing.T) {
	raw := []byte(`
title: Root
type: object
properties:
  zeta:
    type: string
  alpha:
    type: array
    items:
      type: string
  mid:
    enum: [1, 2]
`)
	def, err := Load("root.yaml", raw)
	require.NoError(t, err)

	var keys []string
	def.EachProperty(func(key string, _ *Definition) { keys = append(keys, key) })
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	mid, _ := def.Property("mid")
	assert.True(t, mid.Enum.Contains(int64(2)))
	assert.True(t, mid.Enum.Contains(2.0))
}

func TestEnumScalarIsSingleValueSet(t *testing.T) {
	def, err := LoadJSON([]byte(`{"enum": "IDENTIFIER"}`))
	require.NoError(t, err)
	assert.Equal(t, KindEnum, def.Kind())
	assert.Equal(t, Enum{"IDENTIFIER"}, def.Enum)
	assert.False(t, def.Enum.Contains("IDENT"))
}

func TestLoadRejectsMalformed(t *testing.T) {
	_, err := Load("broken.json", []byte(`{"title":`))
	assert.Error(t, err)
	_, err = Load("broken.yml", []byte("title: [unclosed"))
	assert.Error(t, err)
}

func TestMapIsTotalAndOrdered(t *testing.T) {
	def, err := LoadJSON([]byte(oaiSchemaJSON))
	require.NoError(t, err)

	root := MapDocument(def, true)
	require.NotNil(t, root)
	assert.Equal(t, "OAI-PMH", root.Name)
	require.Len(t, root.Children, 4)
	for i, want := range []string{"responseDate", "request", "ListRecords", "error"} {
		assert.Equal(t, want, root.Children[i].Name)
	}

	// arrays have no properties of their own, so record stays childless
	records, ok := root.Child("ListRecords")
	require.True(t, ok)
	record, ok := records.Child("record")
	require.True(t, ok)
	assert.Nil(t, record.Children)

	tree.Walk(root, func(n *tree.Node, _ int) bool {
		assert.True(t, n.Show, n.Name)
		assert.True(t, n.EditableTitle, n.Name)
		assert.Empty(t, n.Title, n.Name)
		return true
	})
}

func TestMapNilDefinition(t *testing.T) {
	n := Map("lonely", nil, false)
	require.NotNil(t, n)
	assert.Equal(t, "lonely", n.Name)
	assert.Nil(t, n.Children)
	assert.Nil(t, MapDocument(nil, false))
}

func TestMapBuiltDefinition(t *testing.T) {
	def := NewObject("Root",
		Prop("b", String()),
		Prop("a", NewObject("", Prop("x", EnumOf("1")))),
	)
	n := Map("Root", def, false)
	require.Len(t, n.Children, 2)
	assert.Equal(t, "b", n.Children[0].Name)
	assert.Equal(t, "a", n.Children[1].Name)
	require.Len(t, n.Children[1].Children, 1)
	assert.Equal(t, "x", n.Children[1].Children[0].Name)
	assert.False(t, n.EditableTitle)
}

func TestRegistryCachesByContent(t *testing.T) {
	reg, err := NewRegistry(4)
	require.NoError(t, err)

	first, err := reg.Load("oai.json", []byte(oaiSchemaJSON))
	require.NoError(t, err)
	second, err := reg.Load("other-name.json", []byte(oaiSchemaJSON))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Load("bad.json", []byte("{"))
	assert.Error(t, err)
	assert.Equal(t, 1, reg.Len())
}
