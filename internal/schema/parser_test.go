package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentEndToEnd(t *testing.T) {
	def, err := LoadJSON([]byte(`{"title":"Root","type":"object","properties":{"id":{"type":"string"}}}`))
	require.NoError(t, err)
	doc, err := DecodeInstance([]byte(`{"Root":{"id":"urn:1"}}`))
	require.NoError(t, err)

	n := ParseDocument(def, doc)
	require.NotNil(t, n)
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Root","show":true,"children":[{"name":"id","show":true,"title":"urn:1","leaf":true}]}`, string(raw))
}

func TestParseDocumentMissingRoot(t *testing.T) {
	def := NewObject("Root", Prop("id", String()))
	assert.Nil(t, ParseDocument(def, map[string]any{"Other": map[string]any{}}))
	assert.Nil(t, ParseDocument(def, nil))
}

func TestParseObjectFiltersByInstance(t *testing.T) {
	def := NewObject("", Prop("a", String()), Prop("b", String()))

	n := ParseAny(map[string]any{"a": "1"}, "root", def)
	require.NotNil(t, n)
	require.Len(t, n.Children, 1)
	assert.Equal(t, "a", n.Children[0].Name)
}

func TestParseObjectSkipsFalsyValues(t *testing.T) {
	def := NewObject("", Prop("a", String()), Prop("b", String()), Prop("c", NewObject("")))

	n := ParseAny(map[string]any{"a": "", "b": nil, "c": false}, "root", def)
	require.NotNil(t, n)
	assert.Empty(t, n.Children)
}

func TestParseObjectKeepsEmptyNodes(t *testing.T) {
	def := NewObject("", Prop("inner", NewObject("", Prop("x", String()))))

	n := ParseAny(map[string]any{"inner": map[string]any{"y": "unused"}}, "root", def)
	require.Len(t, n.Children, 1)
	assert.Equal(t, "inner", n.Children[0].Name)
	assert.Nil(t, n.Children[0].Children)
}

func TestParseObjectNonMapInstance(t *testing.T) {
	def := NewObject("", Prop("a", String()))
	n := ParseAny("just text", "root", def)
	require.NotNil(t, n)
	assert.Nil(t, n.Children)
}

func TestParseStringVariants(t *testing.T) {
	def := String()

	t.Run("trimmed plain string", func(t *testing.T) {
		n := ParseAny("  foo  ", "f", def)
		require.NotNil(t, n)
		assert.Equal(t, "foo", n.Title)
		assert.True(t, n.Leaf)
	})

	t.Run("mixed content ignores attributes", func(t *testing.T) {
		n := ParseAny(map[string]any{"#text": " bar ", "@attr": "x"}, "f", def)
		require.NotNil(t, n)
		assert.Equal(t, "bar", n.Title)
		assert.True(t, n.Leaf)
		assert.Nil(t, n.Children)
	})

	t.Run("blank text is absent", func(t *testing.T) {
		assert.Nil(t, ParseAny(map[string]any{"#text": "   "}, "f", def))
		assert.Nil(t, ParseAny(map[string]any{"@attr": "x"}, "f", def))
	})

	t.Run("sequence collects leaves", func(t *testing.T) {
		n := ParseAny([]any{" a ", map[string]any{"#text": "b"}, int64(3), map[string]any{}}, "f", def)
		require.NotNil(t, n)
		require.Len(t, n.Children, 2)
		assert.Equal(t, "a", n.Children[0].Title)
		assert.Equal(t, "b", n.Children[1].Title)
		assert.False(t, n.Leaf)
	})

	t.Run("other shapes are absent", func(t *testing.T) {
		assert.Nil(t, ParseAny(int64(42), "f", def))
		assert.Nil(t, ParseAny(nil, "f", def))
	})
}

func TestParseEnumMembership(t *testing.T) {
	def := EnumOf("X", "Y")

	assert.Nil(t, ParseAny("Z", "e", def))
	n := ParseAny("X", "e", def)
	require.NotNil(t, n)
	assert.Equal(t, "X", n.Title)
	assert.False(t, n.Leaf)

	// no substring matching
	assert.Nil(t, ParseAny("XY", "e", EnumOf("XYZ")))

	nums := EnumOf(1.0, 2.0)
	n = ParseAny(int64(2), "e", nums)
	require.NotNil(t, n)
	assert.Equal(t, "2", n.Title)
	assert.Nil(t, ParseAny("2", "e", nums))

	n = ParseAny(json.Number("1"), "e", nums)
	require.NotNil(t, n)
	assert.Equal(t, "1", n.Title)
}

func TestParseEnumKeepsIntegerTitles(t *testing.T) {
	def := NewObject("Root", Prop("code", EnumOf(int64(1000000), int64(9007199254740993))))

	doc, err := DecodeInstance([]byte(`{"Root":{"code":1000000}}`))
	require.NoError(t, err)
	n := ParseDocument(def, doc)
	require.NotNil(t, n)
	require.Len(t, n.Children, 1)
	assert.Equal(t, "1000000", n.Children[0].Title)

	// above 2^53 the neighbouring value must not match
	code, ok := def.Property("code")
	require.True(t, ok)
	assert.Nil(t, ParseAny(int64(9007199254740992), "code", code))
	big := ParseAny(int64(9007199254740993), "code", EnumOf(int64(9007199254740993)))
	require.NotNil(t, big)
	assert.Equal(t, "9007199254740993", big.Title)

	assert.Equal(t, "2.5", ParseAny(2.5, "f", EnumOf(2.5)).Title)
	assert.Equal(t, "7", ParseAny(json.Number("7"), "n", EnumOf(int64(7))).Title)
}

func TestParseArrayUsesArrayName(t *testing.T) {
	def := ArrayOf(NewObject("", Prop("id", String())))
	instance := []any{
		map[string]any{"id": "1"},
		"not an object",
		map[string]any{"id": "2"},
	}

	n := ParseAny(instance, "record", def)
	require.NotNil(t, n)
	require.Len(t, n.Children, 3)
	for _, c := range n.Children {
		assert.Equal(t, "record", c.Name)
	}
	assert.Equal(t, "1", n.Children[0].Children[0].Title)
	assert.Nil(t, n.Children[1].Children)
}

func TestParseArraySingleElement(t *testing.T) {
	def := ArrayOf(String())
	n := ParseAny("only", "item", def)
	require.NotNil(t, n)
	require.Len(t, n.Children, 1)
	assert.Equal(t, "only", n.Children[0].Title)
}

func TestParseUnknownKind(t *testing.T) {
	assert.Nil(t, ParseAny("x", "n", &Definition{}))
	assert.Nil(t, ParseAny("x", "n", nil))
	assert.Nil(t, ParseAny("x", "n", ArrayOf(nil)).Children)
}

func TestParseOAIDocument(t *testing.T) {
	def, err := LoadJSON([]byte(oaiSchemaJSON))
	require.NoError(t, err)
	doc, err := DecodeInstance([]byte(`{
	  "OAI-PMH": {
	    "responseDate": " 2013-04-01T10:00:00Z ",
	    "request": {"@verb": "ListRecords", "#text": "http://example.org/oai"},
	    "ListRecords": {"record": [
	      {"header": {"identifier": "oai:1"}, "status": "deleted"},
	      {"header": {"identifier": "oai:2"}, "status": "unknown"}
	    ]}
	  }
	}`))
	require.NoError(t, err)

	root := ParseDocument(def, doc)
	require.NotNil(t, root)
	require.Len(t, root.Children, 3)

	date, ok := root.Child("responseDate")
	require.True(t, ok)
	assert.Equal(t, "2013-04-01T10:00:00Z", date.Title)

	req, ok := root.Child("request")
	require.True(t, ok)
	require.Len(t, req.Children, 2)
	assert.Equal(t, "ListRecords", req.Children[0].Title)

	lr, ok := root.Child("ListRecords")
	require.True(t, ok)
	records, ok := lr.Child("record")
	require.True(t, ok)
	require.Len(t, records.Children, 2)
	require.Len(t, records.Children[0].Children, 2)
	assert.Equal(t, "deleted", records.Children[0].Children[1].Title)
	require.Len(t, records.Children[1].Children, 1)
	assert.Equal(t, "header", records.Children[1].Children[0].Name)
}
