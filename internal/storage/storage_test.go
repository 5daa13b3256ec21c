package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "mapdex/internal/errors"
	"mapdex/internal/logging"
	"mapdex/internal/mappings"
	"mapdex/internal/paths"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMappings(version string) *mappings.Mappings {
	m := mappings.New(version, "yarn "+version, mappings.SourceTinyV2, "yarn")
	c := m.GetOrCreateClass("net/minecraft/class_1")
	c.Obf.Merged = "a"
	c.MappedName = "net/minecraft/entity/Entity"
	meth := c.GetOrCreateMethod("method_5", "(I)V")
	meth.Obf.Merged = "b"
	meth.MappedName = "tick"
	f := c.GetOrCreateField("field_7", "Lnet/minecraft/class_1;")
	f.Obf.Merged = "c"
	return m
}

func TestDatabaseInitialization(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, paths.IndexFileName))
	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	require.NoError(t, db.Close())

	// Reopening runs migrations against an up to date schema.
	db, err = Open(dir, nil)
	require.NoError(t, err)
	defer db.Close()
	version, err = db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestMigrationFromV1(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	require.NoError(t, err)
	_, err = db.Exec("DROP TABLE failed_loads")
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_version SET version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir, nil)
	require.NoError(t, err)
	defer db.Close()

	neg := NewNegativeCache(db)
	assert.NoError(t, neg.Record("yarn", "1.20", ParseFailure, "bad header"))
}

func TestCacheIndex(t *testing.T) {
	idx := NewCacheIndex(setupTestDB(t))

	rec, err := idx.Get("yarn", "1.20")
	require.NoError(t, err)
	assert.Nil(t, rec)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, idx.Put(CacheRecord{Namespace: "yarn", Version: "1.20", CacheID: "id-1", Path: "yarn/1.20", ClassCount: 3, Compressed: true, CreatedAt: created}))
	require.NoError(t, idx.Put(CacheRecord{Namespace: "yarn", Version: "1.19", CacheID: "id-0", Path: "yarn/1.19"}))
	require.NoError(t, idx.Put(CacheRecord{Namespace: "mojang", Version: "1.20", CacheID: "id-2", Path: "mojang/1.20"}))

	rec, err = idx.Get("yarn", "1.20")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "id-1", rec.CacheID)
	assert.Equal(t, 3, rec.ClassCount)
	assert.True(t, rec.Compressed)
	assert.True(t, created.Equal(rec.CreatedAt))

	// Put replaces.
	require.NoError(t, idx.Put(CacheRecord{Namespace: "yarn", Version: "1.20", CacheID: "id-9", Path: "yarn/1.20b"}))
	rec, err = idx.Get("yarn", "1.20")
	require.NoError(t, err)
	assert.Equal(t, "id-9", rec.CacheID)

	all, err := idx.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "mojang", all[0].Namespace)
	assert.Equal(t, "1.19", all[1].Version)

	yarn, err := idx.List("yarn")
	require.NoError(t, err)
	assert.Len(t, yarn, 2)

	removed, err := idx.DeleteNamespace("yarn")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	require.NoError(t, idx.Delete("mojang", "1.20"))
	require.NoError(t, idx.Delete("mojang", "1.20"))
	all, err = idx.List("")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileCacheRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts FileCacheOptions
	}{
		{"plain", FileCacheOptions{}},
		{"zstd pooled", FileCacheOptions{Compress: true, StringPool: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fc := NewFileCache(setupTestDB(t), tc.opts)
			m := sampleMappings("1.20.1")
			id := CacheKey(m.Namespace, m.Version, ContentHash([]byte("source")))

			rec, err := fc.Write(id, m)
			require.NoError(t, err)
			assert.Equal(t, tc.opts.Compress, rec.Compressed)
			assert.Equal(t, 1, rec.ClassCount)

			found, err := fc.Lookup("yarn", "1.20.1", id)
			require.NoError(t, err)
			require.NotNil(t, found)

			got, err := fc.Read(found)
			require.NoError(t, err)
			assert.Equal(t, m.Metadata(), got.Metadata())
			c := got.GetClass("net/minecraft/class_1")
			require.NotNil(t, c)
			assert.Equal(t, "net/minecraft/entity/Entity", c.MappedName)
			assert.Equal(t, "b", c.GetMethod("method_5", "(I)V").Obf.Merged)
			assert.Equal(t, "c", c.GetField("field_7").Obf.Merged)
		})
	}
}

func TestFileCacheLookupMisses(t *testing.T) {
	db := setupTestDB(t)
	fc := NewFileCache(db, FileCacheOptions{Compress: true})
	m := sampleMappings("1.20")

	rec, err := fc.Write("id-a", m)
	require.NoError(t, err)

	found, err := fc.Lookup("yarn", "1.20", "id-b")
	require.NoError(t, err)
	assert.Nil(t, found, "a different content id is a miss")

	require.NoError(t, os.Remove(filepath.Join(db.Dir(), rec.Path)))
	found, err = fc.Lookup("yarn", "1.20", "id-a")
	require.NoError(t, err)
	assert.Nil(t, found, "a missing file is a miss")

	rows, err := fc.Index().List("yarn")
	require.NoError(t, err)
	assert.Empty(t, rows, "the stale row is dropped")
}

func TestFileCacheReplacesStaleFile(t *testing.T) {
	db := setupTestDB(t)
	fc := NewFileCache(db, FileCacheOptions{})
	m := sampleMappings("1.20")

	old, err := fc.Write("id-old", m)
	require.NoError(t, err)
	_, err = fc.Write("id-new", m)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(db.Dir(), old.Path))
	rec, err := fc.Index().Get("yarn", "1.20")
	require.NoError(t, err)
	assert.Equal(t, "id-new", rec.CacheID)
}

func TestFileCacheCorrupt(t *testing.T) {
	db := setupTestDB(t)
	for _, compress := range []bool{false, true} {
		fc := NewFileCache(db, FileCacheOptions{Compress: compress})
		rec, err := fc.Write("id", sampleMappings("1.20"))
		require.NoError(t, err)

		full := filepath.Join(db.Dir(), rec.Path)
		data, err := os.ReadFile(full)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(full, data[:len(data)-3], 0644))

		_, err = fc.Read(rec)
		require.Error(t, err)
		assert.True(t, mderrors.HasCode(err, mderrors.CacheCorrupt), "compress=%v: %v", compress, err)

		require.NoError(t, fc.Remove(rec))
		assert.NoFileExists(t, full)
	}
}

func TestFileCacheClear(t *testing.T) {
	db := setupTestDB(t)
	fc := NewFileCache(db, FileCacheOptions{})
	for _, v := range []string{"1.19", "1.20"} {
		_, err := fc.Write("id-"+v, sampleMappings(v))
		require.NoError(t, err)
	}

	n, err := fc.Clear("yarn")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(filepath.Join(db.Dir(), "yarn"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheKey(t *testing.T) {
	h := ContentHash([]byte("tiny\t2\t0\tofficial\tnamed\n"))
	a := CacheKey("yarn", "1.20", h)

	assert.Equal(t, a, CacheKey("yarn", "1.20", h))
	assert.NotEqual(t, a, CacheKey("yarn", "1.21", h))
	assert.NotEqual(t, a, CacheKey("mojang", "1.20", h))
	assert.NotEqual(t, a, CacheKey("yarn", "1.20", h+1))
	assert.Len(t, a, 36)
}
