// Package store provides SQLite-backed persistence for pets, feed history
// and scheduled triggers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL,
	age        INTEGER NOT NULL,
	photo      TEXT    NOT NULL DEFAULT '',
	feed_count INTEGER NOT NULL DEFAULT 0,
	experience INTEGER NOT NULL DEFAULT 0,
	level      TEXT    NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS feed_records (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	pet_id  INTEGER NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
	fed_at  DATETIME NOT NULL,
	source  TEXT NOT NULL DEFAULT 'manual'
);

CREATE TABLE IF NOT EXISTS scheduled_triggers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	pet_id     INTEGER NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
	hour       INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
	minute     INTEGER NOT NULL CHECK (minute BETWEEN 0 AND 59),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(pet_id, hour, minute)
);

CREATE INDEX IF NOT EXISTS idx_feed_records_pet_time ON feed_records(pet_id, fed_at);
CREATE INDEX IF NOT EXISTS idx_triggers_pet ON scheduled_triggers(pet_id);
`

// DB wraps a sql.DB with feeder-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Transactions start with BEGIN IMMEDIATE so read-modify-write updates
// take the write lock up front.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
