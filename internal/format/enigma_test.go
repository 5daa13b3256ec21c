package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/logging"
	"mapdex/internal/namespace"
	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

func TestEnigmaFixture(t *testing.T) {
	p := NewEnigmaParser(EnigmaOptions{})
	name := "net/minecraft/world/Foo.mapping"
	require.NoError(t, p.AddFile(name, bytes.NewReader(testutil.ReadFixture(t, "enigma/"+name))))

	rec := &testutil.Recorder{}
	require.NoError(t, p.Parse(rec))
	assert.Equal(t, []string{
		"start {intermediary,named}",
		"class net/minecraft/class_1 net/minecraft/world/Foo",
		"  docs A foo.",
		"  field field_1 count : I",
		"  method method_1 accept : (Lnet/minecraft/class_2;)V",
		"    param 1 - bar",
		"      docs The bar.",
		"class net/minecraft/class_1$class_3 net/minecraft/world/Foo$Inner",
		"  field field_4 - : I",
		"end",
	}, rec.Events)
}

func TestEnigmaNestedClassName(t *testing.T) {
	m := build(t, Enigma, "CLASS Outer\n\tCLASS Inner\n", visitor.NamespaceConfig{
		Intermediary: namespace.Intermediary,
		Named:        namespace.Named,
	})

	assert.NotNil(t, m.GetClass("Outer"))
	assert.NotNil(t, m.GetClass("Outer$Inner"))
	assert.Nil(t, m.GetClass("Inner"))
}

func TestEnigmaAlreadyQualifiedNested(t *testing.T) {
	rec := record(t, Enigma, "CLASS a/Outer\n\tCLASS a/Outer$Inner In\n")
	assert.Equal(t, "class a/Outer$Inner a/Outer$In", rec.Events[2])
}

const orphanInput = "FIELD a b I\n" +
	"CLASS A\n" +
	"\t\tCLASS Deep\n" +
	"\tMETHOD m ()V\n" +
	"\t\tARG 0 x\n" +
	"\tFIELD f I\n" +
	"\t\tMETHOD g ()V\n" +
	"ARG 1 y\n"

func TestEnigmaSkipsOrphans(t *testing.T) {
	var logs bytes.Buffer
	p := NewEnigmaParser(EnigmaOptions{
		ShowErrors: true,
		Logger:     logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.WarnLevel, Output: &logs}),
	})
	require.NoError(t, p.AddFile("A.mapping", strings.NewReader(orphanInput)))

	rec := &testutil.Recorder{}
	require.NoError(t, p.Parse(rec))
	assert.Equal(t, []string{
		"start {intermediary,named}",
		"class A -",
		"  method m - : ()V",
		"    param 0 - x",
		"  field f - : I",
		"end",
	}, rec.Events)
	assert.Equal(t, 4, p.Skipped())
	assert.Equal(t, 4, strings.Count(logs.String(), "no resolvable parent"))
}

func TestEnigmaIgnoreErrorsReattaches(t *testing.T) {
	p := NewEnigmaParser(EnigmaOptions{IgnoreErrors: true})
	require.NoError(t, p.AddFile("", strings.NewReader(orphanInput)))

	rec := &testutil.Recorder{}
	require.NoError(t, p.Parse(rec))
	assert.Equal(t, []string{
		"start {intermediary,named}",
		"class A -",
		"  method m - : ()V",
		"    param 0 - x",
		"  field f - : I",
		"  method g - : ()V",
		"class Deep -",
		"end",
	}, rec.Events)
	assert.Equal(t, 2, p.Skipped())
}

func TestEnigmaMultipleFiles(t *testing.T) {
	p := NewEnigmaParser(EnigmaOptions{Namespaces: []string{"official", "named"}})
	require.NoError(t, p.AddFile("a.mapping", strings.NewReader("CLASS a Foo\n")))
	require.NoError(t, p.AddFile("b.mapping", strings.NewReader("CLASS b Bar\n")))

	rec := &testutil.Recorder{}
	require.NoError(t, p.Parse(rec))
	assert.Equal(t, []string{"start {official,named}", "class a Foo", "class b Bar", "end"}, rec.Events)
}

func TestEnigmaStructuralErrors(t *testing.T) {
	for _, input := range []string{
		"CLASS\n",
		"CLASS a b c\n",
		"CLASS a\n\tMETHOD m\n",
		"CLASS a\n\tFIELD f x y\n",
		"CLASS a\n\tMETHOD m ()V\n\t\tARG x y\n",
		"CLAZZ a\n",
	} {
		err := NewEnigmaParser(EnigmaOptions{}).AddFile("", strings.NewReader(input))
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, input)
	}
}
