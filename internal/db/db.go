package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver(string(SQLite), sqlx.QUESTION)
}

// Connect opens the database for the given driver and runs migrations.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	dialect := Dialect(driver)
	switch dialect {
	case Postgres:
	case SQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if dialect == SQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// DialectOf reports the dialect of an open connection.
func DialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == string(SQLite) {
		return SQLite
	}
	return Postgres
}

// Migrate creates the schema and indexes for the connection's dialect.
func Migrate(db *sqlx.DB) error {
	migrations := postgresMigrations
	if DialectOf(db) == SQLite {
		migrations = sqliteMigrations
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Printf("database migrations applied dialect=%s", DialectOf(db))
	return nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT,
        username TEXT,
        display_name TEXT NOT NULL,
        avatar_url TEXT,
        last_seen_at BIGINT NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);`,
	`CREATE TABLE IF NOT EXISTS contacts (
        id BIGSERIAL PRIMARY KEY,
        owner_id TEXT NOT NULL,
        contact_id TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        UNIQUE (owner_id, contact_id),
        CHECK (owner_id <> contact_id)
    );`,
	`CREATE TABLE IF NOT EXISTS messages (
        id BIGSERIAL PRIMARY KEY,
        content TEXT NOT NULL,
        sender_id TEXT NOT NULL,
        receiver_id TEXT NOT NULL,
        sent_at BIGINT NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id, receiver_id, sent_at);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages (receiver_id, sender_id, sent_at);`,
	`CREATE TABLE IF NOT EXISTS clear_watermarks (
        owner_id TEXT NOT NULL,
        other_user_id TEXT NOT NULL,
        cleared_at BIGINT NOT NULL,
        PRIMARY KEY (owner_id, other_user_id)
    );`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT,
        username TEXT,
        display_name TEXT NOT NULL,
        avatar_url TEXT,
        last_seen_at INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);`,
	`CREATE TABLE IF NOT EXISTS contacts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        owner_id TEXT NOT NULL,
        contact_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        UNIQUE (owner_id, contact_id),
        CHECK (owner_id <> contact_id)
    );`,
	`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        content TEXT NOT NULL,
        sender_id TEXT NOT NULL,
        receiver_id TEXT NOT NULL,
        sent_at INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id, receiver_id, sent_at);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages (receiver_id, sender_id, sent_at);`,
	`CREATE TABLE IF NOT EXISTS clear_watermarks (
        owner_id TEXT NOT NULL,
        other_user_id TEXT NOT NULL,
        cleared_at INTEGER NOT NULL,
        PRIMARY KEY (owner_id, other_user_id)
    );`,
}
