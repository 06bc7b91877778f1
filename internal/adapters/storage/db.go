package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// TimeLayout is the fixed-width UTC layout used for every timestamp column.
// Fixed width keeps lexical order equal to chronological order in SQL comparisons.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens the SQLite database at path.
// Every transaction takes the write lock at BEGIN (_txlock=immediate), so
// read-check-write sequences inside a transaction are serialized.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged connection pool with WAL, busy timeout and foreign keys
func Open(path string) (*sql.DB, error) {
	if path == ":memory:" {
		db, err := sql.Open("sqlite", ":memory:?_txlock=immediate&_pragma=foreign_keys(ON)")
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dsn := path + "?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// Migrate applies all pending embedded migrations.
// PRE: db is a valid database connection
// POST: Schema is at the latest version
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	slog.Info("schema_migrated", "version", version)
	return nil
}

// FormatTime renders t in TimeLayout, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout column, returning the zero time for "".
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint or index.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// BoolToInt maps a bool onto SQLite's integer boolean.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
