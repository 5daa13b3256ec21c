package codec

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/format"
	"mapdex/internal/mappings"
	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

// snapshot flattens a container into sorted lines for comparison.
func snapshot(m *mappings.Mappings) []string {
	entry := func(e mappings.Entry) string {
		return fmt.Sprintf("%s obf=%s/%s/%s mapped=%s", e.IntermediaryName, e.Obf.Merged, e.Obf.Client, e.Obf.Server, e.MappedName)
	}
	out := []string{fmt.Sprintf("meta %s %s %s %s", m.Version, m.Name, m.Source, m.Namespace)}
	for _, c := range m.Classes {
		out = append(out, "class "+entry(c.Entry))
		for _, meth := range c.Methods {
			out = append(out, fmt.Sprintf("method %s %s %s", c.IntermediaryName, meth.IntermediaryDesc, entry(meth.Entry)))
		}
		for _, f := range c.Fields {
			out = append(out, fmt.Sprintf("field %s %s %s", c.IntermediaryName, f.IntermediaryDesc, entry(f.Entry)))
		}
	}
	sort.Strings(out)
	return out
}

func parseFixture(t *testing.T, f format.Format, name string, cfg visitor.NamespaceConfig) *mappings.Mappings {
	t.Helper()
	b := mappings.NewBuilder(mappings.New("1.20.1", name, f.Source(), "test"), nil)
	input := bytes.NewReader(testutil.ReadFixture(t, name))
	require.NoError(t, format.Parse(f, input, visitor.NewBuilderVisitor(b, cfg), format.Options{}))
	return b.Build()
}

func handmade() *mappings.Mappings {
	m := mappings.New("1.7.10", "mcp", "", "mcp")
	c := m.GetOrCreateClass("net/minecraft/Foo")
	c.Obf = mappings.Obf{Client: "a", Server: "b"}
	c.MappedName = "net/minecraft/Foo"

	same := c.GetOrCreateMethod("<init>", "()V")
	same.Obf.Merged = "<init>"
	c.GetOrCreateMethod("tick", "(Lnet/minecraft/Foo;)V").Obf = mappings.Obf{Server: "c"}
	c.GetOrCreateField("bare", "")

	m.GetOrCreateClass("Empty")
	return m
}

func TestRoundTrip(t *testing.T) {
	containers := map[string]*mappings.Mappings{
		"tiny": parseFixture(t, format.TinyV2, "sample.tiny", visitor.NamespaceConfig{
			ObfMerged: "official", Intermediary: "intermediary", Named: "named",
		}),
		"tsrg2": parseFixture(t, format.TSRG2, "sample.tsrg2", visitor.NamespaceConfig{
			ObfMerged: "obf", Intermediary: "srg",
		}),
		"handmade": handmade(),
	}

	for name, m := range containers {
		for _, pooled := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/pool=%v", name, pooled), func(t *testing.T) {
				data, err := EncodeBytes(m, Options{StringPool: pooled})
				require.NoError(t, err)

				got, err := Decode(data)
				require.NoError(t, err)
				assert.Equal(t, snapshot(m), snapshot(got))
				assert.Equal(t, m.Metadata(), got.Metadata())
			})
		}
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	m := handmade()
	a, err := EncodeBytes(m, Options{StringPool: true})
	require.NoError(t, err)
	b, err := EncodeBytes(m, Options{StringPool: true})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPoolShrinksRepetitiveData(t *testing.T) {
	m := mappings.New("1.0", "big", mappings.SourceTinyV2, "yarn")
	for i := 0; i < 50; i++ {
		c := m.GetOrCreateClass(fmt.Sprintf("net/minecraft/class_%d", i))
		for j := 0; j < 10; j++ {
			c.GetOrCreateMethod(fmt.Sprintf("method_%d", j), "(Lnet/minecraft/class_0;)Lnet/minecraft/class_1;")
		}
	}

	inline, err := EncodeBytes(m, Options{})
	require.NoError(t, err)
	pooled, err := EncodeBytes(m, Options{StringPool: true})
	require.NoError(t, err)
	assert.Less(t, len(pooled), len(inline))
}

func TestMergedNullTagReadsAsAbsent(t *testing.T) {
	data := []byte{flagInline}
	// version "1", name "n", null source, namespace "x"
	data = append(data, 2, 0, '1', 2, 0, 'n', 0, 0, 2, 0, 'x')
	// one class "A" with a merged-null obf, no mapping, no members
	data = append(data, 1, 0, 0, 0, 2, 0, 'A', magicMergedNull, magicAbsent)
	data = append(data, 0, 0, 0, 0, 0, 0, 0, 0)

	m, err := Decode(data)
	require.NoError(t, err)
	c := m.GetClass("A")
	require.NotNil(t, c)
	assert.True(t, c.Obf.IsEmpty())
	assert.Equal(t, mappings.Source(""), m.Source)
}

func TestTruncatedInputFails(t *testing.T) {
	for _, pooled := range []bool{false, true} {
		data, err := EncodeBytes(handmade(), Options{StringPool: pooled})
		require.NoError(t, err)

		for n := 0; n < len(data); n++ {
			_, err := Decode(data[:n])
			var derr *DecodeError
			require.True(t, errors.As(err, &derr), "prefix %d of %d must fail with DecodeError, got %v", n, len(data), err)
		}
	}
}

func TestCorruptInputFails(t *testing.T) {
	valid, err := EncodeBytes(handmade(), Options{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"trailing bytes", func(b []byte) []byte { return append(b, 0) }},
		{"unknown flags", func(b []byte) []byte { b[0] = 7; return b }},
		{"huge class count", func(b []byte) []byte {
			// version "1.7.10", name "mcp", null source, namespace "mcp"
			off := 1 + 2 + 6 + 2 + 3 + 2 + 2 + 3
			b[off], b[off+1], b[off+2], b[off+3] = 0xff, 0xff, 0xff, 0x7f
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			_, err := Decode(data)
			var derr *DecodeError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestPoolReferenceOutOfRange(t *testing.T) {
	data := []byte{flagPooled, 0, 5}
	_, err := Decode(data)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Error(), "outside pool")
}

func TestEncodeRejectsLongStrings(t *testing.T) {
	m := mappings.New(strings.Repeat("v", maxString+1), "n", "", "x")
	_, err := EncodeBytes(m, Options{})
	assert.Error(t, err)
	_, err = EncodeBytes(m, Options{StringPool: true})
	assert.Error(t, err)
}

func TestDecodeReader(t *testing.T) {
	data, err := EncodeBytes(handmade(), Options{StringPool: true})
	require.NoError(t, err)
	m, err := DecodeReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, m.Classes, 2)
}
