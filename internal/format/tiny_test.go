package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

func TestTinyV2Events(t *testing.T) {
	rec := record(t, TinyV2, string(testutil.ReadFixture(t, "sample.tiny")))

	assert.Equal(t, []string{
		"start {official,intermediary,named}",
		"class a net/minecraft/class_1 net/minecraft/world/Foo",
		"  docs A foo.",
		"  field a field_1 count : I",
		"  method a method_1 accept : (Lb;)V",
		"    param 1 - - bar",
		"      docs The bar.",
		"    docs Accepts a bar.",
		"  method b method_2 - : ()V",
		"class b net/minecraft/class_2 net/minecraft/world/Bar",
		"  field a field_2 owner : La;",
		"end",
	}, rec.Events)
}

func TestTinyV2BuildsModel(t *testing.T) {
	m := build(t, TinyV2, string(testutil.ReadFixture(t, "sample.tiny")), visitor.NamespaceConfig{
		ObfMerged:    "official",
		Intermediary: "intermediary",
		Named:        "named",
	})

	foo := m.GetClass("net/minecraft/class_1")
	require.NotNil(t, foo)
	assert.Equal(t, "net/minecraft/world/Foo", foo.MappedName)
	assert.Equal(t, "a", foo.Obf.Merged)

	accept := foo.GetMethod("method_1", "(Lnet/minecraft/class_2;)V")
	require.NotNil(t, accept)
	assert.Equal(t, "accept", accept.MappedName)

	unnamed := foo.GetMethod("method_2", "()V")
	require.NotNil(t, unnamed)
	assert.False(t, unnamed.IsMapped())
}

func TestTinyV2EscapedNames(t *testing.T) {
	input := "tiny\t2\t0\ta\tb\n\tescaped-names\nc\tx\\ty\tz\\\\w\n\tc\tline\\none\n"
	rec := record(t, TinyV2, input)

	assert.Equal(t, []string{
		"start {a,b}",
		"class x\ty z\\w",
		"  docs line\none",
		"end",
	}, rec.Events)
}

func TestTinyV2SkipsLocals(t *testing.T) {
	input := "tiny\t2\t0\ta\tb\nc\tA\tB\n\tm\t()V\tm\tn\n\t\tv\t1\t0\t0\tx\ty\n"
	rec := record(t, TinyV2, input)
	assert.Len(t, rec.Events, 4)
}

func TestTinyV2Errors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":          "",
		"bad header":     "tiny\t1\t0\ta\tb\n",
		"one namespace":  "tiny\t2\t0\ta\n",
		"bad minor":      "tiny\t2\tx\ta\tb\n",
		"class arity":    "tiny\t2\t0\ta\tb\nc\tx\ty\tz\n",
		"field at root":  "tiny\t2\t0\ta\tb\nf\tI\tx\ty\n",
		"jump indent":    "tiny\t2\t0\ta\tb\nc\tA\tB\n\t\tp\t0\tx\ty\n",
		"param on field": "tiny\t2\t0\ta\tb\nc\tA\tB\n\tf\tI\tx\ty\n\t\tp\t0\tp\tq\n",
		"bad index":      "tiny\t2\t0\ta\tb\nc\tA\tB\n\tm\t()V\tx\ty\n\t\tp\t-1\tp\tq\n",
		"unknown member": "tiny\t2\t0\ta\tb\nc\tA\tB\n\tq\tI\tx\ty\n",
	} {
		t.Run(name, func(t *testing.T) {
			err := Parse(TinyV2, stringsReader(input), &testutil.Recorder{}, Options{})
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestTinyV1Events(t *testing.T) {
	input := "v1\tofficial\tintermediary\tnamed\n" +
		"CLASS\ta\tclass_1\tFoo\n" +
		"FIELD\ta\tI\tb\tfield_1\tcount\n" +
		"METHOD\tc\t()V\td\tmethod_2\trun\n" +
		"CLASS\tc\tclass_2\tBar\n"
	rec := record(t, TinyV1, input)

	assert.Equal(t, []string{
		"start {official,intermediary,named}",
		"class a class_1 Foo",
		"  field b field_1 count : I",
		"class c class_2 Bar",
		"  method d method_2 run : ()V",
		"end",
	}, rec.Events)
}

func TestTinyV1Errors(t *testing.T) {
	for _, input := range []string{
		"v2\ta\tb\n",
		"v1\ta\n",
		"v1\ta\tb\nCLASS\tx\n",
		"v1\ta\tb\nFIELD\tx\tI\ty\n",
		"v1\ta\tb\nPACKAGE\tx\ty\n",
	} {
		err := Parse(TinyV1, stringsReader(input), &testutil.Recorder{}, Options{})
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, input)
	}
}

func TestTinyEscapeRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "tab\there", "nl\nx", `back\slash`, "nul\x00"} {
		assert.Equal(t, s, unescapeTiny(escapeTiny(s)))
	}
}
