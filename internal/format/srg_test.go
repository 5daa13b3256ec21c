package format

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/namespace"
	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestSRGEvents(t *testing.T) {
	rec := record(t, SRG, string(testutil.ReadFixture(t, "sample.srg")))

	assert.Equal(t, []string{
		"start {obf,srg}",
		"class a net/minecraft/world/Foo",
		"  field a field_1_a : ",
		"  method a func_1_a : (Lb;)V",
		"class b net/minecraft/world/Bar",
		"  method a func_2_b : ()V",
		"end",
	}, rec.Events)
}

func TestSRGBuildsModel(t *testing.T) {
	m := build(t, SRG, string(testutil.ReadFixture(t, "sample.srg")), visitor.NamespaceConfig{
		ObfMerged:    namespace.Obf,
		Intermediary: namespace.SRG,
	})

	foo := m.GetClass("net/minecraft/world/Foo")
	require.NotNil(t, foo)
	assert.NotNil(t, foo.GetMethod("func_1_a", "(Lnet/minecraft/world/Bar;)V"))
	assert.Equal(t, "a", foo.GetField("field_1_a").Obf.Merged)
}

func TestSRGArity(t *testing.T) {
	for _, input := range []string{"CL: a\n", "MD: a/b ()V c/d\n", "FD: a/b c/d e\n", "FD: a b\n"} {
		err := Parse(SRG, stringsReader(input), &testutil.Recorder{}, Options{})
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, input)
	}
}
