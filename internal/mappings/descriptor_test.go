package mappings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemapDescriptor(t *testing.T) {
	table := map[string]string{"a": "net/Foo", "b": "net/Bar"}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"I", "I"},
		{"La;", "Lnet/Foo;"},
		{"(La;[Lb;I)Lc;", "(Lnet/Foo;[Lnet/Bar;I)Lc;"},
		{"([[La;)V", "([[Lnet/Foo;)V"},
		{"(JZ)V", "(JZ)V"},
		{"(La", "(La"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RemapDescriptor(tt.in, MapLookup(table)))
		})
	}
}

func TestTypeToDescriptor(t *testing.T) {
	tests := map[string]string{
		"int":              "I",
		"void":             "V",
		"boolean[]":        "[Z",
		"long[][]":         "[[J",
		"java.lang.String": "Ljava/lang/String;",
		"a.b.C[]":          "[La/b/C;",
		" double ":         "D",
	}
	for in, want := range tests {
		assert.Equal(t, want, TypeToDescriptor(in), in)
	}
}

func TestDescriptorValidation(t *testing.T) {
	assert.True(t, IsFieldDescriptor("I"))
	assert.True(t, IsFieldDescriptor("[[La/B;"))
	assert.False(t, IsFieldDescriptor("V"))
	assert.False(t, IsFieldDescriptor("L;"))
	assert.False(t, IsFieldDescriptor("II"))
	assert.False(t, IsFieldDescriptor("name"))

	assert.True(t, IsMethodDescriptor("()V"))
	assert.True(t, IsMethodDescriptor("(ILa/B;[J)La/C;"))
	assert.False(t, IsMethodDescriptor("()"))
	assert.False(t, IsMethodDescriptor("(I"))
	assert.False(t, IsMethodDescriptor("(Q)V"))
	assert.False(t, IsMethodDescriptor("()VV"))
}
