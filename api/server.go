package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"korgan-irp/api/handlers"
	"korgan-irp/config"
	"korgan-irp/core/analytics"
	"korgan-irp/core/auth"
	"korgan-irp/core/orgdir"
	"korgan-irp/core/rbac"
	"korgan-irp/core/reports"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

type Server struct {
	cfg            *config.AppConfig
	logger         *utils.Logger
	sessions       store.SessionStore
	users          store.UsersStore
	audits         store.AuditStore
	sessionManager *auth.SessionManager
	policy         *rbac.Policy
	orgs           *orgdir.Directory
	reportsSvc     *reports.Service
	taxonomies     *reports.Taxonomies
	analytics      *analytics.Engine

	activityTracker *sessionActivity
	httpServer      *http.Server
}

type ServerDeps struct {
	Cfg            *config.AppConfig
	Logger         *utils.Logger
	Sessions       store.SessionStore
	Users          store.UsersStore
	Audits         store.AuditStore
	SessionManager *auth.SessionManager
	Policy         *rbac.Policy
	Orgs           *orgdir.Directory
	ReportsSvc     *reports.Service
	Taxonomies     *reports.Taxonomies
	Analytics      *analytics.Engine
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		cfg:             deps.Cfg,
		logger:          deps.Logger,
		sessions:        deps.Sessions,
		users:           deps.Users,
		audits:          deps.Audits,
		sessionManager:  deps.SessionManager,
		policy:          deps.Policy,
		orgs:            deps.Orgs,
		reportsSvc:      deps.ReportsSvc,
		taxonomies:      deps.Taxonomies,
		analytics:       deps.Analytics,
		activityTracker: newSessionActivity(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	h := s.newRouteHandlers()
	withSession := s.withSession
	require := s.requirePermission

	r.MethodFunc(http.MethodPost, "/api/auth/login", s.loginRateLimited(h.auth.Login))
	r.MethodFunc(http.MethodPost, "/api/auth/logout", withSession(h.auth.Logout))
	r.MethodFunc(http.MethodGet, "/api/auth/me", withSession(h.auth.Me))

	r.MethodFunc(http.MethodGet, "/api/reports/aggregate", withSession(require(rbac.PermReportsView)(h.reports.Aggregate)))
	r.MethodFunc(http.MethodPost, "/api/reports/validate", withSession(require(rbac.PermReportsView)(h.reports.Validate)))
	r.MethodFunc(http.MethodPost, "/api/reports/save", withSession(require(rbac.PermReportsSave)(h.reports.Save)))
	r.MethodFunc(http.MethodGet, "/api/reports/status", withSession(require(rbac.PermReportsView)(h.reports.Status)))

	r.MethodFunc(http.MethodGet, "/api/analytics/trend", withSession(require(rbac.PermAnalyticsView)(h.analytics.Trend)))
	r.MethodFunc(http.MethodGet, "/api/analytics/delta", withSession(require(rbac.PermAnalyticsView)(h.analytics.Delta)))
	r.MethodFunc(http.MethodGet, "/api/analytics/top-causes", withSession(require(rbac.PermAnalyticsView)(h.analytics.TopCauses)))

	r.MethodFunc(http.MethodGet, "/api/orgs/tree", withSession(require(rbac.PermOrgsView)(h.orgs.Tree)))

	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}
	return r
}

type routeHandlers struct {
	auth      *handlers.AuthHandler
	reports   *handlers.ReportsHandler
	analytics *handlers.AnalyticsHandler
	orgs      *handlers.OrgsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.sessionManager, s.policy, s.audits, s.logger),
		reports:   handlers.NewReportsHandler(s.cfg, s.reportsSvc, s.orgs, s.logger),
		analytics: handlers.NewAnalyticsHandler(s.analytics, s.taxonomies, s.orgs, s.logger),
		orgs:      handlers.NewOrgsHandler(s.orgs, s.logger),
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Printf("listening on %s", s.cfg.ListenAddr)
	if s.cfg.TLSEnabled && s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
