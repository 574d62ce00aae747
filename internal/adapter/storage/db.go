package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	sqlite3driver "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/ext/unicode"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

type DBOptions struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenDB opens and pings the database. SQLite is limited to a single
// connection so writers queue instead of failing with SQLITE_BUSY, and gets
// Unicode-aware LOWER and LIKE so filters fold case the same way on both drivers.
func OpenDB(ctx context.Context, opts DBOptions) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case DriverMySQL:
		db, err = sql.Open(opts.Driver, opts.DSN)
	case DriverSQLite:
		db, err = sqlite3driver.Open(opts.DSN, unicode.Register)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}
	return db, nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id VARCHAR(36) PRIMARY KEY,
		artist VARCHAR(255) NOT NULL,
		album VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		quantity INT NOT NULL DEFAULT 0,
		format VARCHAR(32) NOT NULL,
		category VARCHAR(32) NOT NULL,
		mbid VARCHAR(64) NOT NULL DEFAULT '',
		tracklist TEXT NOT NULL,
		version INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		CHECK (quantity >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) PRIMARY KEY,
		request_id VARCHAR(128) NOT NULL DEFAULT '',
		record_id VARCHAR(36) NOT NULL,
		quantity INT NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0',
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		format TEXT NOT NULL,
		category TEXT NOT NULL,
		mbid TEXT NOT NULL DEFAULT '',
		tracklist TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL DEFAULT '',
		record_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

// EnsureSchema creates the tables when they are missing. It does not alter
// existing tables.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	stmts := mysqlSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// sqlTime scans timestamps whether the driver hands back time.Time or text.
type sqlTime struct {
	t *time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (s sqlTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = v.UTC()
		return nil
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", value)
	}
}

func (s sqlTime) parse(v string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse time %q", v)
}
