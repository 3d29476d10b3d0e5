package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"integer", "42", int64(42)},
		{"integer with trailing newline", "42\n", int64(42)},
		{"negative integer", "-7", int64(-7)},
		{"float", "42.0", float64(42)},
		{"float scientific", "1e3", float64(1000)},
		{"bool true", "true", true},
		{"bool false", "false", false},
		{"string", "hello", "hello"},
		{"string with trailing newline", "hello\n", "hello"},
		{"multiline string", "line1\nline2\n", "line1\nline2"},
		{"empty", "", ""},
		{"only newline", "\n", ""},
		{"bool-ish word stays string", "True", "True"},
		{"yes is a string", "yes", "yes"},
		{"nan stays string", "NaN", "NaN"},
		{"inf stays string", "Inf", "Inf"},
		{"hex stays string", "0x1F", "0x1F"},
		{"tab separated stays single line", "a\tb", "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer([]byte(tt.raw)))
		})
	}
}

func TestInferNode_MultilineHint(t *testing.T) {
	n := InferNode([]byte("line1\nline2\n"))
	assert.Equal(t, KindScalar, n.Kind)
	assert.True(t, n.Multiline)

	n = InferNode([]byte("hello\n"))
	assert.False(t, n.Multiline)

	n = InferNode([]byte("a\tb"))
	assert.False(t, n.Multiline)
}
