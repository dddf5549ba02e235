// Package appbootstrap wires the application graph: stores over one database
// handle, the domain services on top, and the HTTP server around them.
package appbootstrap

import (
	"context"
	"database/sql"

	"korgan-irp/api"
	"korgan-irp/config"
	"korgan-irp/core/analytics"
	"korgan-irp/core/auth"
	"korgan-irp/core/metrics"
	"korgan-irp/core/orgdir"
	"korgan-irp/core/rbac"
	"korgan-irp/core/reports"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

// App is the composed runtime: the server plus the background pieces that
// need a lifecycle of their own.
type App struct {
	Server *api.Server
	OrgDir *orgdir.Directory
	DB     *sql.DB
}

func Compose(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*App, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)
	orgUnits := store.NewOrgUnitsStore(db)
	incidents := store.NewIncidentsStore(db)
	reportForms := store.NewReportFormsStore(db)

	policy, err := rbac.NewPolicy()
	if err != nil {
		db.Close()
		return nil, err
	}

	orgDirectory := orgdir.NewDirectory(orgUnits, cfg, logger)
	if err := orgDirectory.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	taxonomies := reports.NewTaxonomies()
	m := metrics.New()
	aggregator := reports.NewAggregator(incidents, taxonomies)
	validator := reports.NewValidator(taxonomies)
	reportsSvc := reports.NewService(orgDirectory, aggregator, validator, reportForms, audits, m, logger)
	analyticsEngine := analytics.NewEngine(incidents)
	sessionManager := auth.NewSessionManager(sessions, users, cfg, logger)

	server := api.NewServer(api.ServerDeps{
		Cfg:            cfg,
		Logger:         logger,
		Sessions:       sessions,
		Users:          users,
		Audits:         audits,
		SessionManager: sessionManager,
		Policy:         policy,
		Orgs:           orgDirectory,
		ReportsSvc:     reportsSvc,
		Taxonomies:     taxonomies,
		Analytics:      analyticsEngine,
	})

	return &App{Server: server, OrgDir: orgDirectory, DB: db}, nil
}

// Start launches the background refresh and the HTTP listener. Blocks until
// the listener stops.
func (a *App) Start() error {
	if err := a.OrgDir.Start(); err != nil {
		return err
	}
	return a.Server.Start()
}

// Shutdown stops the listener and background work, then closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.OrgDir.Stop()
	if closeErr := a.DB.Close(); err == nil {
		err = closeErr
	}
	return err
}
