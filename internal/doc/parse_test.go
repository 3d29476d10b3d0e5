package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Basic(t *testing.T) {
	root, err := Parse([]byte(`
name: yamlfs
port: 8080
ratio: 0.5
enabled: true
tags:
  - alpha
  - beta
nested:
  inner: value
`))
	require.NoError(t, err)
	require.Equal(t, KindMapping, root.Kind)

	name, ok := root.Fields.Get("name")
	require.True(t, ok)
	assert.Equal(t, "yamlfs", name.Value)

	port, _ := root.Fields.Get("port")
	assert.Equal(t, int64(8080), port.Value)

	ratio, _ := root.Fields.Get("ratio")
	assert.Equal(t, 0.5, ratio.Value)

	enabled, _ := root.Fields.Get("enabled")
	assert.Equal(t, true, enabled.Value)

	tags, _ := root.Fields.Get("tags")
	require.Equal(t, KindSequence, tags.Kind)
	require.Len(t, tags.Items, 2)
	assert.Equal(t, "alpha", tags.Items[0].Value)

	nested, _ := root.Fields.Get("nested")
	require.Equal(t, KindMapping, nested.Kind)
	inner, _ := nested.Fields.Get("inner")
	assert.Equal(t, "value", inner.Value)
}

func TestParse_KeyOrderPreserved(t *testing.T) {
	root, err := Parse([]byte("zebra: 1\napple: 2\nmango: 3\n"))
	require.NoError(t, err)

	var keys []string
	for p := root.Fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, keys)
}

func TestParse_EmptyAndNull(t *testing.T) {
	for _, text := range []string{"", "\n", "null\n", "# only a comment\n"} {
		root, err := Parse([]byte(text))
		require.NoError(t, err, "input %q", text)
		assert.Equal(t, KindMapping, root.Kind)
		assert.Equal(t, 0, root.Fields.Len())
	}
}

func TestParse_NullValueBecomesEmptyString(t *testing.T) {
	root, err := Parse([]byte("key:\n"))
	require.NoError(t, err)
	n, ok := root.Fields.Get("key")
	require.True(t, ok)
	assert.Equal(t, KindScalar, n.Kind)
	assert.Equal(t, "", n.Value)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("key: [unclosed\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParse_DuplicateKey(t *testing.T) {
	_, err := Parse([]byte("key: 1\nkey: 2\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParse_AliasDereferenced(t *testing.T) {
	root, err := Parse([]byte("base: &b hello\ncopy: *b\n"))
	require.NoError(t, err)
	cp, ok := root.Fields.Get("copy")
	require.True(t, ok)
	assert.Equal(t, "hello", cp.Value)
}

func TestRoundTrip_StructurallyEqual(t *testing.T) {
	inputs := []string{
		"a: 1\nb: two\nc: 3.5\nd: false\n",
		"list:\n  - 1\n  - x\n  - true\n",
		"outer:\n  inner:\n    leaf: deep\n",
		"text: |-\n  line1\n  line2\n",
		"quoted: \"42\"\n",
	}
	for _, text := range inputs {
		first, err := Parse([]byte(text))
		require.NoError(t, err, "input %q", text)

		out, err := Serialize(first)
		require.NoError(t, err)

		second, err := Parse(out)
		require.NoError(t, err, "re-parse of %q", out)
		assert.True(t, first.Equal(second), "round trip changed structure: %q -> %q", text, out)
	}
}

func TestSerialize_MultilineUsesLiteralStyle(t *testing.T) {
	root := NewMapping()
	root.Fields.Set("msg", NewScalar("line1\nline2"))

	out, err := Serialize(root)
	require.NoError(t, err)
	assert.Contains(t, string(out), "|-")
	assert.Contains(t, string(out), "line1\n")
	assert.Contains(t, string(out), "line2\n")
	assert.NotContains(t, string(out), `\n`)
}

func TestSerialize_TrailingNewlineOnlyIsNotBlockStyle(t *testing.T) {
	// Embedded trailing newline on one conceptual line: quoted, never block.
	root := NewMapping()
	root.Fields.Set("msg", &Node{Kind: KindScalar, Value: "hello\n"})

	out, err := Serialize(root)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "|")
	assert.Contains(t, string(out), `"hello\n"`)
}

func TestSerialize_StringThatLooksNumericStaysString(t *testing.T) {
	root := NewMapping()
	root.Fields.Set("version", NewScalar("42"))

	out, err := Serialize(root)
	require.NoError(t, err)

	back, err := Parse(out)
	require.NoError(t, err)
	n, _ := back.Fields.Get("version")
	assert.Equal(t, "42", n.Value)
}

func TestSerialize_FloatKeepsDecimalPoint(t *testing.T) {
	root := NewMapping()
	root.Fields.Set("ratio", NewScalar(float64(42)))

	out, err := Serialize(root)
	require.NoError(t, err)

	back, err := Parse(out)
	require.NoError(t, err)
	n, _ := back.Fields.Get("ratio")
	assert.Equal(t, float64(42), n.Value)
}

func TestSerialize_InteriorWhitespacePreserved(t *testing.T) {
	val := "first line\n\n  indented line\ntrailing spaces  \nlast"
	root := NewMapping()
	root.Fields.Set("text", NewScalar(val))

	out, err := Serialize(root)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)
	n, _ := back.Fields.Get("text")
	assert.Equal(t, val, n.Value)
}

func TestNode_MarshalJSON(t *testing.T) {
	root := NewMapping()
	root.Fields.Set("zebra", NewScalar(int64(1)))
	root.Fields.Set("apple", NewScalar("two"))
	seq := NewSequence()
	seq.Items = append(seq.Items, NewScalar(true), NewScalar(3.5))
	root.Fields.Set("list", seq)

	out, err := root.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"zebra":1,"apple":"two","list":[true,3.5]}`, string(out))
	// Key order must survive, not just set equality.
	assert.Regexp(t, `(?s)zebra.*apple.*list`, string(out))
}

func TestNode_ScalarText(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"hello", "hello"},
		{int64(42), "42"},
		{42.5, "42.5"},
		{float64(42), "42.0"},
		{true, "true"},
		{false, "false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewScalar(tt.value).ScalarText())
	}
}

func TestNode_Equal(t *testing.T) {
	a, err := Parse([]byte("x: 1\ny: [a, b]\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("x: 1\ny:\n  - a\n  - b\n"))
	require.NoError(t, err)
	c, err := Parse([]byte("y:\n  - a\n  - b\nx: 1\n"))
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "flow vs block style must not affect equality")
	assert.False(t, a.Equal(c), "key order is part of structural equality")
}
