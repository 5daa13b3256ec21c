package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("mappings/")
	require.NoError(t, err)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestForEachEntry(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"mappings/mappings.tiny": "tiny\t2\t0\ta\tb\n",
		"META-INF/MANIFEST.MF":   "Manifest-Version: 1.0\n",
	})

	var seen []string
	err := ForEachEntry(archive, func(path string, data []byte) error {
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"META-INF/MANIFEST.MF", "mappings/mappings.tiny"}, seen)

	data, err := ReadEntry(archive, "mappings/mappings.tiny")
	require.NoError(t, err)
	assert.Equal(t, "tiny\t2\t0\ta\tb\n", string(data))

	_, err = ReadEntry(archive, "missing")
	assert.Error(t, err)

	boom := errors.New("boom")
	err = ForEachEntry(archive, func(string, []byte) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.Error(t, ForEachEntry([]byte("not a zip"), func(string, []byte) error { return nil }))
}

func TestLocalFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("plain"), 0644))

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write([]byte("compressed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt.gz"), gz.Bytes(), 0644))

	f := NewLocalFetcher(dir)
	ctx := context.Background()

	data, err := f.Fetch(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))

	data, err = f.Fetch(ctx, "b.txt.gz")
	require.NoError(t, err)
	assert.Equal(t, "compressed", string(data))

	data, err = f.Fetch(ctx, filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))

	_, err = f.Fetch(ctx, "missing.txt")
	assert.True(t, os.IsNotExist(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Fetch(cancelled, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalFetcherForEachFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tree", "net", "mc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree", "net", "mc", "B.mapping"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree", "A.mapping"), []byte("a"), 0644))

	f := NewLocalFetcher(dir)
	assert.True(t, f.Exists("tree"))
	assert.False(t, f.Exists("nope"))

	got := map[string]string{}
	var order []string
	err := f.ForEachFile(context.Background(), "tree", func(rel string, data []byte) error {
		got[rel] = string(data)
		order = append(order, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A.mapping": "a", "net/mc/B.mapping": "b"}, got)
	assert.Equal(t, []string{"A.mapping", "net/mc/B.mapping"}, order)
}

func TestSemverParser(t *testing.T) {
	var p SemverParser

	tests := []struct {
		in string
		ok bool
	}{
		{"1.20", true},
		{"1.20.1", true},
		{"1.20.1-pre2", true},
		{"1.14 Pre-Release 2", true},
		{"23w13a", false},
		{"", false},
		{"1", false},
		{"1.2.3.4", false},
		{"b1.7.3", false},
	}
	for _, tt := range tests {
		_, ok := p.TryParseVersion(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}

	parse := func(s string) Version {
		v, ok := p.TryParseVersion(s)
		require.True(t, ok, s)
		return v
	}
	assert.Equal(t, 0, parse("1.20").Compare(parse("1.20.0")))
	assert.Equal(t, -1, parse("1.19.4").Compare(parse("1.20")))
	assert.Equal(t, -1, parse("1.20.1-pre2").Compare(parse("1.20.1")))
	assert.Equal(t, 1, parse("1.20.10").Compare(parse("1.20.9")))
	assert.Equal(t, "1.20", parse("1.20").String())
}

func TestLatestAndSort(t *testing.T) {
	var p SemverParser
	versions := []string{"1.19.4", "23w13a", "1.20.1", "1.20", "1.20.1-rc1"}

	latest, ok := Latest(p, versions)
	require.True(t, ok)
	assert.Equal(t, "1.20.1", latest)

	_, ok = Latest(p, []string{"23w13a"})
	assert.False(t, ok)

	assert.Equal(t, []string{"1.20.1", "1.20.1-rc1", "1.20", "1.19.4", "23w13a"}, SortNewestFirst(p, versions))
}

const mavenMetadata = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>net.fabricmc</groupId>
  <artifactId>yarn</artifactId>
  <versioning>
    <latest>1.20.1+build.10</latest>
    <release>1.20.1+build.10</release>
    <versions>
      <version>1.20+build.1</version>
      <version>1.20.1+build.10</version>
    </versions>
  </versioning>
</metadata>`

func TestMavenVersions(t *testing.T) {
	versions, release, err := MavenVersions([]byte(mavenMetadata))
	require.NoError(t, err)
	assert.Equal(t, []string{"1.20+build.1", "1.20.1+build.10"}, versions)
	assert.Equal(t, "1.20.1+build.10", release)

	_, _, err = MavenVersions([]byte("<project/>"))
	assert.Error(t, err)

	_, _, err = MavenVersions([]byte("<metadata>"))
	assert.Error(t, err)
}

func TestElementAccessors(t *testing.T) {
	root, err := ParseXML([]byte(`<a x="1"><b>one</b><b>two</b><c/></a>`))
	require.NoError(t, err)

	assert.Equal(t, "1", root.Attrs["x"])
	assert.Equal(t, "one", root.Get("b").TextOf())
	assert.Len(t, root.GetAll("b"), 2)
	assert.Nil(t, root.Get("missing"))
	assert.Equal(t, "", root.Get("missing").TextOf())
	assert.Nil(t, root.Get("missing").GetAll("x"))
}
