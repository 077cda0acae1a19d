// Package store persists check results between runs so unchanged files are
// not re-parsed. Entries are keyed by a hash of the file, the conftest files
// it depends on and the analysis settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fixturelint/internal/logging"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is bumped when the results table changes shape.
// Older databases are dropped and recreated; it is only a cache.
const CurrentSchemaVersion = 1

// ResultCache is a SQLite-backed key/value cache of encoded diagnostics.
type ResultCache struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Path      string
	Entries   int
	Files     int
	Hits      int
	SizeBytes int64
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*ResultCache, error) {
	logging.StoreDebug("Opening result cache at %s", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	c := &ResultCache{db: db, dbPath: path}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("Result cache ready at %s", path)
	return c, nil
}

func (c *ResultCache) initialize() error {
	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS cache_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create cache_meta: %w", err)
	}

	var version int
	err := c.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM cache_meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != CurrentSchemaVersion {
		if version != 0 {
			logging.Store("Cache schema v%d is stale (want v%d), recreating", version, CurrentSchemaVersion)
		}
		if _, err := c.db.Exec(`DROP TABLE IF EXISTS results`); err != nil {
			return fmt.Errorf("failed to drop results: %w", err)
		}
	}

	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS results (
		key         TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		diagnostics BLOB NOT NULL,
		created_at  INTEGER NOT NULL,
		hits        INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return fmt.Errorf("failed to create results: %w", err)
	}
	if _, err := c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_results_path ON results(path)`); err != nil {
		return fmt.Errorf("failed to create results index: %w", err)
	}
	if _, err := c.db.Exec(`INSERT INTO cache_meta(key, value) VALUES('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT diagnostics FROM results WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE results SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		logging.StoreDebug("Failed to bump hit count: %v", err)
	}
	return value, true, nil
}

// Put stores value under key. Older entries for the same path are replaced.
func (c *ResultCache) Put(ctx context.Context, key, path string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE path = ? AND key <> ?`, path, key); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO results(key, path, diagnostics, created_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET path = excluded.path, diagnostics = excluded.diagnostics`,
		key, path, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return tx.Commit()
}

// Stats summarises the cache.
func (c *ResultCache) Stats(ctx context.Context) (CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Path: c.dbPath}
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT path), COALESCE(SUM(hits), 0) FROM results`).
		Scan(&stats.Entries, &stats.Files, &stats.Hits)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	if info, err := os.Stat(c.dbPath); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Prune removes entries created before cutoff and returns how many were removed.
func (c *ResultCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM results WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry.
func (c *ResultCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `VACUUM`); err != nil {
		logging.StoreDebug("VACUUM failed: %v", err)
	}
	logging.Store("Result cache cleared")
	return nil
}

// Close closes the database.
func (c *ResultCache) Close() error {
	return c.db.Close()
}
