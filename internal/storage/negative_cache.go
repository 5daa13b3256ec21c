package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// NegativeCacheErrorType classifies a failed load
type NegativeCacheErrorType string

const (
	// SourceMissing - no source file for the version (TTL 300s)
	SourceMissing NegativeCacheErrorType = "source-missing"

	// ParseFailure - the source file did not parse (TTL 60s)
	ParseFailure NegativeCacheErrorType = "parse-failure"

	// RewireFailure - the rewire source could not be loaded (TTL 30s)
	RewireFailure NegativeCacheErrorType = "rewire-failure"

	// IOFailure - reading the source failed (TTL 10s)
	IOFailure NegativeCacheErrorType = "io-failure"
)

// NegativeCachePolicy defines TTL for each error type
type NegativeCachePolicy struct {
	TTLSeconds  int
	Description string
}

var negativeCachePolicies = map[NegativeCacheErrorType]NegativeCachePolicy{
	SourceMissing: {
		TTLSeconds:  300,
		Description: "No mapping source declared or found for the version",
	},
	ParseFailure: {
		TTLSeconds:  60,
		Description: "Mapping source is malformed - fix the file and retry",
	},
	RewireFailure: {
		TTLSeconds:  30,
		Description: "Rewire source namespace could not supply the version",
	},
	IOFailure: {
		TTLSeconds:  10,
		Description: "Reading the mapping source failed - retry after short delay",
	},
}

// GetNegativeCachePolicy returns the policy for a given error type
func GetNegativeCachePolicy(errorType NegativeCacheErrorType) (NegativeCachePolicy, error) {
	policy, ok := negativeCachePolicies[errorType]
	if !ok {
		return NegativeCachePolicy{}, fmt.Errorf("unknown negative cache error type: %s", errorType)
	}
	return policy, nil
}

// GetNegativeCacheTTL returns the TTL in seconds, 60 for unknown types
func GetNegativeCacheTTL(errorType NegativeCacheErrorType) int {
	policy, err := GetNegativeCachePolicy(errorType)
	if err != nil {
		return 60
	}
	return policy.TTLSeconds
}

// FailedLoad is a remembered load failure.
type FailedLoad struct {
	Namespace    string                 `json:"namespace"`
	Version      string                 `json:"version"`
	ErrorType    NegativeCacheErrorType `json:"errorType"`
	ErrorMessage string                 `json:"errorMessage"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// NegativeCache remembers failed loads so repeated queries against a broken
// version do not re-parse it every time.
type NegativeCache struct {
	db  *DB
	now func() time.Time
}

// NewNegativeCache wraps db.
func NewNegativeCache(db *DB) *NegativeCache {
	return &NegativeCache{db: db, now: time.Now}
}

// Record stores a failure with the TTL of its type.
func (n *NegativeCache) Record(namespace, version string, errorType NegativeCacheErrorType, message string) error {
	now := n.now()
	expiresAt := now.Add(time.Duration(GetNegativeCacheTTL(errorType)) * time.Second)

	_, err := n.db.Exec(`
		INSERT OR REPLACE INTO failed_loads (namespace, version, error_type, error_message, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, namespace, version, string(errorType), message, expiresAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record failed load: %w", err)
	}
	return nil
}

// Check returns the unexpired failure for (namespace, version), or nil.
// Expired rows are deleted on sight.
func (n *NegativeCache) Check(namespace, version string) (*FailedLoad, error) {
	var entry FailedLoad
	var errorType, expiresAt, createdAt string

	err := n.db.QueryRow(`
		SELECT namespace, version, error_type, error_message, expires_at, created_at
		FROM failed_loads
		WHERE namespace = ? AND version = ?
	`, namespace, version).Scan(&entry.Namespace, &entry.Version, &errorType, &entry.ErrorMessage, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("negative cache lookup failed: %w", err)
	}

	if entry.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}
	entry.ErrorType = NegativeCacheErrorType(errorType)

	if !n.now().Before(entry.ExpiresAt) {
		n.db.Exec("DELETE FROM failed_loads WHERE namespace = ? AND version = ?", namespace, version)
		return nil, nil
	}

	n.db.logger.Debug("Negative cache hit", map[string]interface{}{
		"namespace":  namespace,
		"version":    version,
		"error_type": errorType,
	})
	return &entry, nil
}

// Invalidate forgets the failure of (namespace, version).
func (n *NegativeCache) Invalidate(namespace, version string) error {
	if _, err := n.db.Exec("DELETE FROM failed_loads WHERE namespace = ? AND version = ?", namespace, version); err != nil {
		return fmt.Errorf("failed to invalidate failed load: %w", err)
	}
	return nil
}

// InvalidateNamespace forgets every failure of a namespace.
func (n *NegativeCache) InvalidateNamespace(namespace string) error {
	if _, err := n.db.Exec("DELETE FROM failed_loads WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("failed to invalidate failed loads: %w", err)
	}
	return nil
}

// CleanupExpired removes expired failures.
func (n *NegativeCache) CleanupExpired() error {
	now := n.now().UTC().Format(time.RFC3339)
	if _, err := n.db.Exec("DELETE FROM failed_loads WHERE expires_at <= ?", now); err != nil {
		return fmt.Errorf("failed to cleanup failed loads: %w", err)
	}
	return nil
}

// List returns the unexpired failures, newest first.
func (n *NegativeCache) List() ([]FailedLoad, error) {
	rows, err := n.db.Query(`
		SELECT namespace, version, error_type, error_message, expires_at, created_at
		FROM failed_loads
		WHERE expires_at > ?
		ORDER BY created_at DESC, namespace, version
	`, n.now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to list failed loads: %w", err)
	}
	defer rows.Close()

	var out []FailedLoad
	for rows.Next() {
		var entry FailedLoad
		var errorType, expiresAt, createdAt string
		if err := rows.Scan(&entry.Namespace, &entry.Version, &errorType, &entry.ErrorMessage, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		entry.ErrorType = NegativeCacheErrorType(errorType)
		if entry.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
			return nil, fmt.Errorf("invalid expires_at format: %w", err)
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
