// Package sqlite implements the repository interfaces on SQLite via
// modernc.org/sqlite (pure Go, no CGo).
//
// SQLite is the single-writer store the whole system funnels through. WAL
// mode lets reads proceed concurrently with a write, which matters because
// the ledger's conditional decrements and the ticket inserts serialize on
// the writer while leaderboard and catalog reads keep flowing.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" only for single-connection experiments; tests use a
// temp-dir file so the pool's connections all see the same database.
//
// The pragmas ride in the DSN so the driver applies them to EVERY
// connection the pool opens. Issuing them with Exec would configure only
// whichever single connection served that call: the rest of the pool would
// run with busy_timeout=0 (concurrent writers fail with SQLITE_BUSY
// instead of queueing) and foreign keys off. WAL lets readers proceed
// alongside the writer; busy_timeout makes competing writers wait their
// turn.
func New(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent across restarts.
//
// The UNIQUE(holder_id, event_id) index on tickets is load-bearing: it is
// what makes the issuance workflow's idempotency check safe under
// concurrency without application-level locking. Do not drop it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			student_id TEXT NOT NULL UNIQUE,
			username   TEXT NOT NULL UNIQUE,
			full_name  TEXT NOT NULL,
			pass_hash  TEXT NOT NULL,
			lifetime   INTEGER NOT NULL DEFAULT 0,
			score      INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
			role       TEXT NOT NULL DEFAULT 'ordinary'
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time     INTEGER NOT NULL,
			end_time       INTEGER NOT NULL,
			title          TEXT NOT NULL,
			human_location TEXT NOT NULL DEFAULT '',
			latitude       REAL NOT NULL DEFAULT 0,
			longitude      REAL NOT NULL DEFAULT 0,
			details        TEXT NOT NULL DEFAULT '',
			image          TEXT NOT NULL DEFAULT '',
			point_value    INTEGER NOT NULL DEFAULT 0,
			last_sale_date INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id            TEXT PRIMARY KEY,
			serial        TEXT NOT NULL,
			event_id      INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			holder_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			single_entry  INTEGER NOT NULL DEFAULT 1,
			expended      INTEGER NOT NULL DEFAULT 0,
			creation_date INTEGER NOT NULL,
			UNIQUE (holder_id, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_tickets_holder_id ON tickets(holder_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_event_id ON tickets(event_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tickets table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
