package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskbounty/bountyctl/internal/cache"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS pages (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_pages_namespace ON pages(namespace);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) Get(ctx context.Context, namespace, key string) (json.RawMessage, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT payload FROM pages WHERE namespace = ? AND key = ?
`, namespace, key)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrMiss
		}
		return nil, err
	}
	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		// Corrupt entry: discard it and report a miss so the caller
		// re-fetches from the network.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM pages WHERE namespace = ? AND key = ?`, namespace, key)
		return nil, cache.ErrMiss
	}
	return raw, nil
}

func (s *Store) Put(ctx context.Context, namespace, key string, page json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pages (namespace, key, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
`, namespace, key, string(page), time.Now().Unix())
	return err
}

func (s *Store) InvalidateAll(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE namespace = ?`, namespace)
	return err
}
