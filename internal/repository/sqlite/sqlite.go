// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single
// file. No separate database server to install, configure, or manage. For a
// single-server app like this one it is more than enough, and tests can use
// ":memory:" for a throwaway in-memory database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — no C compiler needed,
// works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import is a "side-effect only" import. The sqlite
	// package's init() registers itself with database/sql as a driver named
	// "sqlite". After this import, sql.Open("sqlite", ...) knows how to talk
	// to SQLite. This is Go's plugin pattern — drivers register at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods for
// users, vehicles, and service records. It implements all three repository
// interfaces — one storage type, three views of it.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/carkeeper.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	// The _pragma DSN options apply to EVERY connection the pool opens.
	// Setting them with Exec would only configure whichever connection
	// happened to run the statement — foreign keys would silently be off
	// on the rest of the pool, and ON DELETE CASCADE would not fire.
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// Every pooled connection to ":memory:" gets its OWN private database,
	// so the pool must be a single connection or queries land in empty DBs.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// The in-memory DSN cannot carry _pragma options, but with the pool
	// pinned to one connection a plain Exec covers it. WAL mode allows
	// concurrent reads while a write is happening; foreign keys are OFF by
	// default in SQLite, and we need them ON — records reference vehicles
	// with ON DELETE CASCADE, which is how "deleting a vehicle deletes its
	// history" is enforced.
	if dbPath == ":memory:" {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Wherever you call New(),
// immediately defer Close() — it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent, so
// running it on every startup is safe. In a bigger app you'd reach for a
// migration tool that tracks applied versions; three tables don't need one.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS vehicles (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			make            TEXT NOT NULL,
			model           TEXT NOT NULL,
			year            INTEGER NOT NULL,
			license_plate   TEXT NOT NULL DEFAULT '',
			current_mileage INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_vehicles_user_id ON vehicles(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating vehicles table: %w", err)
	}

	// ON DELETE CASCADE on vehicle_id is the cascade invariant: deleting a
	// vehicle takes its entire service history with it, atomically, without
	// any application-level bookkeeping.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id                TEXT PRIMARY KEY,
			vehicle_id        TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
			service_date      TEXT NOT NULL,
			task              TEXT NOT NULL,
			cost              REAL NOT NULL DEFAULT 0,
			mileage           INTEGER NOT NULL DEFAULT 0,
			verification_hash TEXT NOT NULL DEFAULT '',
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_records_vehicle_id ON records(vehicle_id);
	`)
	if err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}

	return nil
}
