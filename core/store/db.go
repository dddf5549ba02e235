package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"korgan-irp/config"
	"korgan-irp/core/utils"
)

// NewDB opens the configured database. Postgres (pgx stdlib driver) is the
// production engine; a file-backed sqlite database is used when DBPath is set,
// which the test suite relies on.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	if cfg != nil && strings.TrimSpace(cfg.DBPath) != "" {
		db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		logger.Printf("store: opened sqlite database at %s", cfg.DBPath)
		return db, nil
	}
	driver := "pgx"
	if cfg != nil && cfg.DBDriver != "" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	db, err := sql.Open(driver, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var version string
	if err := db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err != nil {
		// sqlite has no version() builtin under this name spelling; probe it.
		var v string
		if err2 := db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&v); err2 == nil {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(strings.ToLower(version), "postgresql"), nil
}

// rebind rewrites ? placeholders to $1..$n for postgres. Stores are written
// with ? so the same SQL runs against the sqlite test database unchanged.
func rebind(isPG bool, query string) string {
	if !isPG {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// dbx pairs the handle with its dialect so stores can share rebind logic.
type dbx struct {
	db   *sql.DB
	isPG bool
}

func newDBX(db *sql.DB) dbx {
	isPG, _ := isPostgresDB(context.Background(), db)
	return dbx{db: db, isPG: isPG}
}

func (d dbx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, rebind(d.isPG, query), args...)
}

func (d dbx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, rebind(d.isPG, query), args...)
}

func (d dbx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, rebind(d.isPG, query), args...)
}
