package store

import (
	"context"
	"database/sql"
	"embed"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pressly/goose/v3"

	"korgan-irp/core/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteMigrations mirrors the goose postgres schema for the test runtime.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS org_units (
		id TEXT PRIMARY KEY,
		parent_id TEXT,
		name TEXT NOT NULL,
		tier TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(parent_id) REFERENCES org_units(id)
	);`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id TEXT PRIMARY KEY,
		occurred_at TIMESTAMP NOT NULL,
		incident_type TEXT NOT NULL,
		locality TEXT NOT NULL DEFAULT 'cities',
		region TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		cause_code TEXT NOT NULL DEFAULT '',
		object_code TEXT NOT NULL DEFAULT '',
		deaths INTEGER NOT NULL DEFAULT 0,
		injured INTEGER NOT NULL DEFAULT 0,
		saved INTEGER NOT NULL DEFAULT 0,
		damage TEXT NOT NULL DEFAULT '0',
		area_burned_ha TEXT NOT NULL DEFAULT '0',
		animals_dead INTEGER NOT NULL DEFAULT 0,
		animals_injured INTEGER NOT NULL DEFAULT 0,
		personnel_dispatched INTEGER NOT NULL DEFAULT 0,
		vehicles_dispatched INTEGER NOT NULL DEFAULT 0,
		aircraft_dispatched INTEGER NOT NULL DEFAULT 0,
		water_tankers INTEGER NOT NULL DEFAULT 0,
		tractors INTEGER NOT NULL DEFAULT 0,
		other_equipment INTEGER NOT NULL DEFAULT 0,
		org_unit_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY(org_unit_id) REFERENCES org_units(id)
	);`,
	`CREATE TABLE IF NOT EXISTS victims (
		id TEXT PRIMARY KEY,
		incident_id TEXT NOT NULL,
		status TEXT NOT NULL,
		victim_type TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		age_group TEXT NOT NULL DEFAULT '',
		social_status TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		death_cause TEXT NOT NULL DEFAULT '',
		death_place TEXT NOT NULL DEFAULT '',
		cause_code TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS report_forms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_unit_id TEXT NOT NULL,
		period TEXT NOT NULL,
		form TEXT NOT NULL,
		status TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(org_unit_id, period, form),
		FOREIGN KEY(org_unit_id) REFERENCES org_units(id)
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		org_unit_id TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY(org_unit_id) REFERENCES org_units(id)
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		org_unit_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_occurred ON incidents(occurred_at);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_org ON incidents(org_unit_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_type ON incidents(incident_type);`,
	`CREATE INDEX IF NOT EXISTS idx_victims_incident ON victims(incident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_report_forms_key ON report_forms(org_unit_id, period, form);`,
}

func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	if !isPG {
		if !isTestRuntime() {
			return fmt.Errorf("only postgres is supported outside go test runtime")
		}
		return applySQLiteTestMigrations(ctx, db, logger)
	}
	return applyGooseMigrations(ctx, db, logger)
}

func applyGooseMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logger.Printf("store: postgres migrations applied")
	return nil
}

func applySQLiteTestMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	logger.Printf("store: applying sqlite test migrations")
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return nil
}

func isTestRuntime() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	exe := strings.ToLower(os.Args[0])
	return strings.HasSuffix(exe, ".test") || strings.Contains(exe, "/go-build")
}
