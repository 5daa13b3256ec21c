package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
version = 1

[[namespace]]
id = "intermediary"
format = "tiny_v2"
pattern = "intermediary/{version}.tiny"

[namespace.config]
obf_merged = "official"
intermediary = "intermediary"

[[namespace]]
id = "mojang"
name = "Mojang"
format = "proguard"
rewire_from = "intermediary"
map_class_names = true

[namespace.config]
obf_merged = "obf"
intermediary = "mapped"

[[namespace.source]]
version = "1.20.1"
files = ["mojang/client.txt", "mojang/server.txt"]
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, []string{"intermediary", "mojang"}, m.IDs())

	moj, ok := m.Get("mojang")
	require.True(t, ok)
	assert.Equal(t, "intermediary", moj.RewireFrom)
	assert.True(t, moj.MapClassNames)
	assert.Equal(t, "mapped", moj.Config.Intermediary)
	assert.Equal(t, []string{"mojang/client.txt", "mojang/server.txt"}, moj.Files("1.20.1"))
	assert.Nil(t, moj.Files("1.19"))

	inter, _ := m.Get("intermediary")
	assert.Equal(t, []string{"intermediary/1.19.tiny"}, inter.Files("1.19"))

	_, ok = m.Get("yarn")
	assert.False(t, ok)
}

func TestManifestSaveRoundTrip(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "conf", ManifestFileName)
	require.NoError(t, m.Save(path))

	again, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
	}{
		{"missing id", Manifest{Namespaces: []NamespaceSource{{Format: "tiny_v2", Pattern: "x"}}}},
		{"duplicate id", Manifest{Namespaces: []NamespaceSource{
			{ID: "a", Format: "tiny_v2", Pattern: "x", Config: cfg("i")},
			{ID: "a", Format: "tiny_v2", Pattern: "x", Config: cfg("i")},
		}}},
		{"bad format", Manifest{Namespaces: []NamespaceSource{{ID: "a", Format: "xml", Pattern: "x", Config: cfg("i")}}}},
		{"no intermediary", Manifest{Namespaces: []NamespaceSource{{ID: "a", Format: "tiny_v2", Pattern: "x"}}}},
		{"no files", Manifest{Namespaces: []NamespaceSource{{ID: "a", Format: "tiny_v2", Config: cfg("i")}}}},
		{"metadata without pattern", Manifest{Namespaces: []NamespaceSource{{
			ID: "a", Format: "tiny_v2", Config: cfg("i"), Metadata: "m.xml",
			Sources: []VersionSource{{Version: "1", Files: []string{"f"}}},
		}}}},
		{"duplicate version", Manifest{Namespaces: []NamespaceSource{{
			ID: "a", Format: "tiny_v2", Config: cfg("i"),
			Sources: []VersionSource{{Version: "1", Files: []string{"f"}}, {Version: "1", Files: []string{"g"}}},
		}}}},
		{"unknown rewire", Manifest{Namespaces: []NamespaceSource{{ID: "a", Format: "tiny_v2", Pattern: "x", Config: cfg("i"), RewireFrom: "b"}}}},
		{"rewire loop", Manifest{Namespaces: []NamespaceSource{
			{ID: "a", Format: "tiny_v2", Pattern: "x", Config: cfg("i"), RewireFrom: "b"},
			{ID: "b", Format: "tiny_v2", Pattern: "x", Config: cfg("i"), RewireFrom: "a"},
		}}},
		{"bad version", Manifest{Version: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.manifest.Validate())
		})
	}

	auto := Manifest{Namespaces: []NamespaceSource{{ID: "a", Format: "auto", Pattern: "x", Config: cfg("i")}}}
	assert.NoError(t, auto.Validate())
}
