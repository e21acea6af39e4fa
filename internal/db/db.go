// Package db stores stages, applications and their history in SQLite or
// PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique row already exists.
	ErrDuplicate = errors.New("record already exists")
)

// DB wraps the database connection.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open opens or creates the database. driver is DriverSQLite or
// DriverPostgres.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return &DB{conn: conn, driver: driver}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Driver returns the driver name the database was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing when it returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const schemaV1SQLite = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    color      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS applications (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    name               TEXT NOT NULL,
    email              TEXT NOT NULL,
    phone              TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL CHECK(status IN ('submitted','reviewed','shortlisted','rejected','downloaded','interview_scheduled','hired')),
    current_stage      INTEGER REFERENCES pipeline_stages(id),
    rating             INTEGER CHECK(rating BETWEEN 1 AND 5),
    interview_date     TEXT,
    interview_location TEXT NOT NULL DEFAULT '',
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_stage ON applications(current_stage);

CREATE TABLE IF NOT EXISTS stage_transitions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    from_stage     INTEGER,
    to_stage       INTEGER,
    notes          TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT '',
    changed_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_app ON stage_transitions(application_id, changed_at);

CREATE TABLE IF NOT EXISTS status_changes (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    from_status    TEXT NOT NULL,
    to_status      TEXT NOT NULL,
    notes          TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT '',
    changed_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS email_receipts (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    template_id    INTEGER NOT NULL,
    sent_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS form_invitations (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    form_id        INTEGER NOT NULL,
    custom_message TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL,
    UNIQUE(application_id, form_id)
);
`

const schemaV1Postgres = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    color      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS applications (
    id                 SERIAL PRIMARY KEY,
    name               TEXT NOT NULL,
    email              TEXT NOT NULL,
    phone              TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL CHECK(status IN ('submitted','reviewed','shortlisted','rejected','downloaded','interview_scheduled','hired')),
    current_stage      INTEGER REFERENCES pipeline_stages(id),
    rating             INTEGER CHECK(rating BETWEEN 1 AND 5),
    interview_date     TEXT,
    interview_location TEXT NOT NULL DEFAULT '',
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_stage ON applications(current_stage);

CREATE TABLE IF NOT EXISTS stage_transitions (
    id             SERIAL PRIMARY KEY,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    from_stage     INTEGER,
    to_stage       INTEGER,
    notes          TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT '',
    changed_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_app ON stage_transitions(application_id, changed_at);

CREATE TABLE IF NOT EXISTS status_changes (
    id             SERIAL PRIMARY KEY,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    from_status    TEXT NOT NULL,
    to_status      TEXT NOT NULL,
    notes          TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT '',
    changed_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS email_receipts (
    id             SERIAL PRIMARY KEY,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    template_id    INTEGER NOT NULL,
    sent_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS form_invitations (
    id             SERIAL PRIMARY KEY,
    application_id INTEGER NOT NULL REFERENCES applications(id),
    form_id        INTEGER NOT NULL,
    custom_message TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL,
    UNIQUE(application_id, form_id)
);
`

// tables lists every table, dependents first.
var tables = []string{
	"form_invitations", "email_receipts", "status_changes", "stage_transitions",
	"applications", "pipeline_stages", "schema_version",
}

func (d *DB) schemaV1() string {
	if d.driver == DriverPostgres {
		return schemaV1Postgres
	}
	return schemaV1SQLite
}

// Migrate applies the database schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// One statement per Exec; pgx rejects multi-statement prepared queries.
	for _, stmt := range splitStatements(d.schemaV1()) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
	}
	if _, err := tx.Exec(d.rebind("INSERT INTO schema_version (version, applied_at) VALUES (1, ?)"), formatTime(time.Now())); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}

func splitStatements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
