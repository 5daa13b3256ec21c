package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"mapdex/internal/codec"
	mderrors "mapdex/internal/errors"
	"mapdex/internal/logging"
	"mapdex/internal/mappings"
	"mapdex/internal/paths"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// FileCache stores encoded containers under a cache directory and keeps the
// index in step with the files.
type FileCache struct {
	dir      string
	index    *CacheIndex
	logger   *logging.Logger
	compress bool
	codec    codec.Options
}

// FileCacheOptions configures a FileCache.
type FileCacheOptions struct {
	// Compress wraps the payload in a zstd frame.
	Compress   bool
	StringPool bool
}

// NewFileCache stores files next to the index of db.
func NewFileCache(db *DB, opts FileCacheOptions) *FileCache {
	return &FileCache{
		dir:      db.Dir(),
		index:    NewCacheIndex(db),
		logger:   db.logger,
		compress: opts.Compress,
		codec:    codec.Options{StringPool: opts.StringPool},
	}
}

// Index exposes the cache index.
func (f *FileCache) Index() *CacheIndex { return f.index }

// Write encodes m into the cache file for (m.Namespace, m.Version, cacheID)
// and records it in the index. The file is written to a temp name first and
// renamed into place.
func (f *FileCache) Write(cacheID string, m *mappings.Mappings) (*CacheRecord, error) {
	payload, err := codec.EncodeBytes(m, f.codec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", m.Namespace, m.Version, err)
	}
	if f.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		payload = enc.EncodeAll(payload, make([]byte, 0, len(payload)/4))
		enc.Close()
	}

	rel := paths.CacheFileName(m.Namespace, m.Version, cacheID)
	full := filepath.Join(f.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return nil, err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to move cache file into place: %w", err)
	}

	// A previous cache id for this version is now stale.
	if prev, err := f.index.Get(m.Namespace, m.Version); err == nil && prev != nil && prev.Path != rel {
		f.removeFile(prev.Path)
	}

	classes, _, _ := m.Counts()
	rec := CacheRecord{
		Namespace:  m.Namespace,
		Version:    m.Version,
		CacheID:    cacheID,
		Path:       rel,
		Source:     string(m.Source),
		ClassCount: classes,
		SizeBytes:  int64(len(payload)),
		Compressed: f.compress,
		CreatedAt:  time.Now(),
	}
	if err := f.index.Put(rec); err != nil {
		return nil, err
	}

	f.logger.Debug("Wrote mappings cache", map[string]interface{}{
		"namespace": m.Namespace,
		"version":   m.Version,
		"path":      rel,
		"bytes":     len(payload),
	})
	return &rec, nil
}

// Read decodes the cache file of rec. Framing is detected from the file, so a
// change of the compress setting does not invalidate existing files. Corrupt
// data yields a CACHE_CORRUPT error wrapping the decode failure.
func (f *FileCache) Read(rec *CacheRecord) (*mappings.Mappings, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, rec.Path))
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return nil, mderrors.New(mderrors.CacheCorrupt, "cache file "+rec.Path+" is not valid zstd", err)
		}
	}

	m, err := codec.Decode(data)
	if err != nil {
		return nil, mderrors.New(mderrors.CacheCorrupt, "cache file "+rec.Path+" could not be decoded", err)
	}
	return m, nil
}

// Lookup returns the indexed record for (namespace, version) when its cache
// id matches and the file still exists.
func (f *FileCache) Lookup(namespace, version, cacheID string) (*CacheRecord, error) {
	rec, err := f.index.Get(namespace, version)
	if err != nil || rec == nil {
		return nil, err
	}
	if cacheID != "" && rec.CacheID != cacheID {
		return nil, nil
	}
	if !fileExists(filepath.Join(f.dir, rec.Path)) {
		f.logger.Debug("Indexed cache file is missing", map[string]interface{}{
			"path": rec.Path,
		})
		return nil, f.index.Delete(namespace, version)
	}
	return rec, nil
}

// Remove deletes the file and index row of rec.
func (f *FileCache) Remove(rec *CacheRecord) error {
	f.removeFile(rec.Path)
	return f.index.Delete(rec.Namespace, rec.Version)
}

// Clear removes every cached version of a namespace and returns how many were removed.
func (f *FileCache) Clear(namespace string) (int, error) {
	removed, err := f.index.DeleteNamespace(namespace)
	if err != nil {
		return 0, err
	}
	for _, rec := range removed {
		f.removeFile(rec.Path)
	}
	return len(removed), nil
}

func (f *FileCache) removeFile(rel string) {
	if err := os.Remove(filepath.Join(f.dir, rel)); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("Failed to remove cache file", map[string]interface{}{
			"path":  rel,
			"error": err.Error(),
		})
	}
}
