package format

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/mappings"
	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

func record(t *testing.T, f Format, input string) *testutil.Recorder {
	t.Helper()
	rec := &testutil.Recorder{}
	require.NoError(t, Parse(f, strings.NewReader(input), rec, Options{}))
	return rec
}

func build(t *testing.T, f Format, input string, cfg visitor.NamespaceConfig) *mappings.Mappings {
	t.Helper()
	b := mappings.NewBuilder(mappings.New("test", "test", f.Source(), "test"), nil)
	require.NoError(t, Parse(f, strings.NewReader(input), visitor.NewBuilderVisitor(b, cfg), Options{}))
	return b.Build()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		line string
		want Format
	}{
		{"tiny\t2\t0\tofficial\tintermediary", TinyV2},
		{"v1\tofficial\tintermediary", TinyV1},
		{"tsrg2 obf srg id", TSRG2},
		{"PK: ./ net/minecraft", SRG},
		{"CL: a net/minecraft/Foo", SRG},
		{"CLASS net/minecraft/class_1 Foo", Enigma},
		{"# compiler: R8", Proguard},
		{"net.minecraft.Foo -> a:", Proguard},
		{"a net/minecraft/Foo", TSRG},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, ok := Detect(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Detect("\tnot a header")
	assert.False(t, ok)
}

func TestDetectReaderDoesNotConsume(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("tsrg2 obf srg\na b\n"))
	f, err := DetectReader(br)
	require.NoError(t, err)
	assert.Equal(t, TSRG2, f)

	rec := &testutil.Recorder{}
	require.NoError(t, Parse(f, br, rec, Options{}))
	assert.Equal(t, "class a b", rec.Events[1])
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"mojang", "Proguard", "tiny", "tiny_v1", "tsrg", "tsrg2", "srg", "enigma"} {
		_, err := ParseFormat(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Format: TSRG2, File: "a.tsrg", Line: 3, Text: "x y z", Msg: "arity mismatch"}
	assert.Equal(t, `tsrg2: a.tsrg:line 3: arity mismatch: "x y z"`, err.Error())

	err = &ParseError{Format: TinyV2, Line: 1, Msg: "missing tiny header"}
	assert.Equal(t, "tiny_v2: line 1: missing tiny header", err.Error())
}

func TestFormatSource(t *testing.T) {
	assert.Equal(t, mappings.SourceProguard, Proguard.Source())
	assert.Equal(t, mappings.SourceTinyV2, TinyV2.Source())

	set, ok := SRG.FixedNamespaces()
	assert.True(t, ok)
	assert.Equal(t, "{obf,srg}", set.String())
	_, ok = TinyV2.FixedNamespaces()
	assert.False(t, ok)
}

func TestErrorsSkipVisitEnd(t *testing.T) {
	inputs := map[Format]string{
		TSRG2:    "tsrg2 obf srg\na b\n\tx\n",
		TSRG:     "a b\n\t\tc d\n",
		TinyV2:   "tiny\t2\t0\tobf\tsrg\nc\ta\tb\n\t\tp\t0\tx\ty\n",
		SRG:      "XX: a b\n",
		Proguard: "a -> b\n",
	}
	for f, input := range inputs {
		t.Run(string(f), func(t *testing.T) {
			rec := &testutil.Recorder{}
			err := Parse(f, strings.NewReader(input), rec, Options{})
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, f, perr.Format)
			assert.NotContains(t, rec.Events, "end")
		})
	}
}
