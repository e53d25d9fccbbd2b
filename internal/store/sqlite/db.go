// Package sqlite implements the domain stores on an embedded SQLite file
// (pure Go, no cgo). It backs local runs and tests where Postgres is not
// available.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as UTC unix nanoseconds so range queries compare
// integers.
const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    scanned_at      INTEGER NOT NULL,
    scan_time_ms    INTEGER NOT NULL DEFAULT 0,
    markets_scanned INTEGER NOT NULL DEFAULT 0,
    opportunities   TEXT    NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_history_at ON scan_history(scanned_at);

CREATE TABLE IF NOT EXISTS webhooks (
    id             TEXT PRIMARY KEY,
    owner          TEXT    NOT NULL,
    url            TEXT    NOT NULL,
    min_spread_pct REAL    NOT NULL DEFAULT 0,
    categories     TEXT    NOT NULL DEFAULT '[]',
    platforms      TEXT    NOT NULL DEFAULT '[]',
    secret         TEXT    NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhooks_owner ON webhooks(owner);

CREATE TABLE IF NOT EXISTS api_keys (
    digest     TEXT PRIMARY KEY,
    tier       TEXT    NOT NULL,
    owner      TEXT    NOT NULL DEFAULT '',
    active     INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    event      TEXT    NOT NULL,
    detail     TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_at ON audit_log(created_at);
`

// DB is an open SQLite database with the schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema. Use
// ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer; also keeps a :memory: database on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Ping checks the database handle.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

// mapWriteErr converts constraint failures to domain.ErrAlreadyExists.
func mapWriteErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrAlreadyExists
	}
	return err
}
