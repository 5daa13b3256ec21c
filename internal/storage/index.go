package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CacheRecord is one row of the cache index.
type CacheRecord struct {
	Namespace  string    `json:"namespace" yaml:"namespace"`
	Version    string    `json:"version" yaml:"version"`
	CacheID    string    `json:"cacheId" yaml:"cacheId"`
	Path       string    `json:"path" yaml:"path"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	ClassCount int       `json:"classCount" yaml:"classCount"`
	SizeBytes  int64     `json:"sizeBytes" yaml:"sizeBytes"`
	Compressed bool      `json:"compressed" yaml:"compressed"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// CacheIndex records which (namespace, version) pairs have a cache file.
type CacheIndex struct {
	db *DB
}

// NewCacheIndex wraps db.
func NewCacheIndex(db *DB) *CacheIndex {
	return &CacheIndex{db: db}
}

// Put inserts or replaces the record for (rec.Namespace, rec.Version).
func (c *CacheIndex) Put(rec CacheRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO mapping_cache
			(namespace, version, cache_id, path, source, class_count, size_bytes, compressed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Namespace, rec.Version, rec.CacheID, rec.Path, rec.Source, rec.ClassCount,
		rec.SizeBytes, boolToInt(rec.Compressed), rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to index cache entry: %w", err)
	}
	return nil
}

// Get returns the record for (namespace, version), or nil when absent.
func (c *CacheIndex) Get(namespace, version string) (*CacheRecord, error) {
	row := c.db.QueryRow(`
		SELECT namespace, version, cache_id, path, source, class_count, size_bytes, compressed, created_at
		FROM mapping_cache
		WHERE namespace = ? AND version = ?
	`, namespace, version)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache index lookup failed: %w", err)
	}
	return rec, nil
}

// Delete removes the record for (namespace, version). Missing rows are not an error.
func (c *CacheIndex) Delete(namespace, version string) error {
	if _, err := c.db.Exec("DELETE FROM mapping_cache WHERE namespace = ? AND version = ?", namespace, version); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteNamespace removes every record of a namespace and returns the removed rows.
func (c *CacheIndex) DeleteNamespace(namespace string) ([]CacheRecord, error) {
	var removed []CacheRecord
	err := c.db.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT namespace, version, cache_id, path, source, class_count, size_bytes, compressed, created_at
			FROM mapping_cache
			WHERE namespace = ?
			ORDER BY version
		`, namespace)
		if err != nil {
			return err
		}
		removed, err = scanRecords(rows)
		if err != nil {
			return err
		}
		_, err = tx.Exec("DELETE FROM mapping_cache WHERE namespace = ?", namespace)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear namespace %s: %w", namespace, err)
	}
	return removed, nil
}

// List returns records ordered by namespace then version. An empty namespace
// lists everything.
func (c *CacheIndex) List(namespace string) ([]CacheRecord, error) {
	query := `
		SELECT namespace, version, cache_id, path, source, class_count, size_bytes, compressed, created_at
		FROM mapping_cache`
	var args []interface{}
	if namespace != "" {
		query += " WHERE namespace = ?"
		args = append(args, namespace)
	}
	query += " ORDER BY namespace, version"

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	return scanRecords(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*CacheRecord, error) {
	var rec CacheRecord
	var compressed int
	var createdAt string
	if err := row.Scan(&rec.Namespace, &rec.Version, &rec.CacheID, &rec.Path, &rec.Source,
		&rec.ClassCount, &rec.SizeBytes, &compressed, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}
	rec.CreatedAt = t
	rec.Compressed = compressed != 0
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]CacheRecord, error) {
	defer rows.Close()
	var out []CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache entries: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
