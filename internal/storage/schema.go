package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createMappingCacheTable(tx); err != nil {
			return err
		}
		if err := createFailedLoadsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Cache index schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	})
}

func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Cache index schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("cache index schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running cache index migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	return db.WithTx(func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createMappingCacheTable(tx); err != nil {
				return err
			}
		}
		if version < 2 {
			if err := createFailedLoadsTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createMappingCacheTable holds one row per cached (namespace, version).
// path is relative to the cache directory.
func createMappingCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS mapping_cache (
			namespace TEXT NOT NULL,
			version TEXT NOT NULL,
			cache_id TEXT NOT NULL,
			path TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			class_count INTEGER NOT NULL DEFAULT 0,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			compressed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,

			PRIMARY KEY (namespace, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create mapping_cache table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_mapping_cache_cache_id ON mapping_cache(cache_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createFailedLoadsTable is the negative cache for loads that failed.
func createFailedLoadsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS failed_loads (
			namespace TEXT NOT NULL,
			version TEXT NOT NULL,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL,

			PRIMARY KEY (namespace, version)
		)
	`); err != nil {
		return fmt.Errorf("failed to create failed_loads table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_failed_loads_expires_at ON failed_loads(expires_at)"); err != nil {
		return fmt.Errorf("failed to create failed_loads index: %w", err)
	}
	return nil
}
