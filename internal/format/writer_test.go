package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapdex/internal/testutil"
	"mapdex/internal/visitor"
)

var tinyConfig = visitor.NamespaceConfig{
	ObfMerged:    "official",
	Intermediary: "intermediary",
	Named:        "named",
}

func TestBindToTinyV2(t *testing.T) {
	m := build(t, TinyV2, string(testutil.ReadFixture(t, "sample.tiny")), tinyConfig)

	var out bytes.Buffer
	require.NoError(t, visitor.Bind(m, NewTinyV2Writer(&out), visitor.BindOptions{}))
	testutil.CompareGolden(t, "bind.tiny", out.Bytes())
}

func TestConvertTinyV2ToTSRG2(t *testing.T) {
	var out bytes.Buffer
	input := bytes.NewReader(testutil.ReadFixture(t, "sample.tiny"))
	require.NoError(t, Parse(TinyV2, input, NewTSRG2Writer(&out), Options{}))
	testutil.CompareGolden(t, "convert.tsrg2", out.Bytes())

	rec := record(t, TSRG2, out.String())
	assert.Contains(t, rec.Events, "    param 1 bar bar bar")
}

func TestTinyV2WriterRoundTrip(t *testing.T) {
	fixture := string(testutil.ReadFixture(t, "sample.tiny"))

	var out bytes.Buffer
	require.NoError(t, Parse(TinyV2, strings.NewReader(fixture), NewTinyV2Writer(&out), Options{}))
	assert.Equal(t, fixture, out.String())
}

func TestTinyV2WriterEscapes(t *testing.T) {
	input := "tiny\t2\t0\ta\tb\n\tescaped-names\nc\tx\\ty\tz\n"

	var out bytes.Buffer
	require.NoError(t, Parse(TinyV2, strings.NewReader(input), NewTinyV2Writer(&out), Options{}))
	assert.Equal(t, input, out.String())
}

func TestNewWriter(t *testing.T) {
	_, err := NewWriter(TinyV2, &bytes.Buffer{})
	assert.NoError(t, err)
	_, err = NewWriter(Proguard, &bytes.Buffer{})
	assert.Error(t, err)
}
