// Command portico runs the authorization gateway: the edge and session
// guard layers, the credential endpoints, and the role matrix, in front of
// the auth backend that owns enforcement.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/porticohq/portico/pkg/api"
	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/config"
	"github.com/porticohq/portico/pkg/gate"
	"github.com/porticohq/portico/pkg/guard"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/kvstore"
	"github.com/porticohq/portico/pkg/observability"
	"github.com/porticohq/portico/pkg/rbac"
	"github.com/porticohq/portico/pkg/session"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting portico gateway %s", version)

	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	kv, err := openSessionStore(cfg.Session)
	if err != nil {
		logger.WithError(err).Error("Failed to open session store")
		os.Exit(1)
	}

	backend := authclient.New(cfg.Auth.BaseURL,
		authclient.WithHTTPClient(&http.Client{Timeout: cfg.Auth.RequestTimeout}))

	auditLogger := audit.Logger(audit.NopLogger{})
	if cfg.Session.StoreType == "filesystem" {
		fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
			BasePath: cfg.Session.FilesystemDir + "/audit",
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to open audit log, auditing disabled")
		} else {
			auditLogger = fileLogger
		}
	}

	sessions := session.NewStore(backend, kv,
		session.WithLogger(logger),
		session.WithMetrics(metrics))
	snap := sessions.RestoreSession(ctx)

	restoreEvent := audit.NewEvent(audit.EventTypeSessionRestore, audit.EventStatusSuccess)
	if snap.Principal != nil {
		restoreEvent.WithPrincipal(snap.Principal.ID, snap.Principal.Email, snap.Principal.TenantID)
	}
	if err := auditLogger.Log(ctx, restoreEvent); err != nil {
		logger.WithError(err).Warn("Failed to write restore audit event")
	}

	if watching, err := sessions.WatchStore(); err != nil {
		logger.WithError(err).Warn("Failed to watch session store")
	} else if watching {
		logger.Info("Watching session store for external changes")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Session.RefreshSchedule, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sessions.RefreshFeatures(refreshCtx); err != nil {
			logger.WithError(err).Warn("Scheduled feature refresh failed")
		}
	}); err != nil {
		logger.WithError(err).Error("Invalid feature refresh schedule")
		os.Exit(1)
	}
	scheduler.Start()

	router, err := buildRouter(cfg, sessions, auditLogger, logger, metrics)
	if err != nil {
		logger.WithError(err).Error("Failed to build router")
		os.Exit(1)
	}

	var handler http.Handler = router
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "portico")
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := buildHealthServer(cfg, sessions, registry)

	go func() {
		logger.Infof("Health server listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.Infof("Gateway listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Gateway server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return auditLogger.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return kv.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// openSessionStore selects the persistence backend from configuration
func openSessionStore(cfg config.SessionConfig) (kvstore.Store, error) {
	switch cfg.StoreType {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "filesystem":
		return kvstore.NewFilesystemStore(cfg.FilesystemDir)
	case "sqlite":
		return kvstore.OpenSQLStore("sqlite3", cfg.SQLiteDSN)
	case "postgres":
		return kvstore.OpenSQLStore("postgres", cfg.PostgresURL)
	case "redis":
		return kvstore.NewRedisStore(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.StoreType)
	}
}

// buildRouter assembles the gateway surface. API routes bypass the route
// guards (they answer JSON, not navigation); everything else is guarded by
// the edge layer first and the session layer second.
func buildRouter(cfg *config.Config, sessions *session.Store, auditLogger audit.Logger, logger *observability.Logger, metrics *observability.Metrics) (*mux.Router, error) {
	router := mux.NewRouter()
	router.Use(
		httputil.RequestIDMiddleware,
		observability.RecoverMiddleware(logger),
	)
	if cfg.Observability.MetricsEnabled {
		router.Use(metrics.HTTPMiddleware)
	}

	apiRouter := router.NewRoute().Subrouter()
	apiRouter.Use(httputil.MaxBytesMiddleware(1 << 20))
	api.NewAuthHandlers(sessions, auditLogger, logger).RegisterRoutes(apiRouter)
	rbac.NewHandlers().RegisterRoutes(apiRouter)

	if cfg.Auth.OIDCEnabled {
		oidcAuth, err := authclient.NewOIDC(context.Background(), authclient.OIDCConfig{
			IssuerURL:    cfg.Auth.OIDCIssuer,
			ClientID:     cfg.Auth.OIDCClientID,
			ClientSecret: cfg.Auth.OIDCClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("OIDC provider discovery failed: %w", err)
		}
		api.NewOIDCHandlers(oidcAuth, sessions, auditLogger, logger).RegisterRoutes(apiRouter)
	}

	edge, err := guard.NewEdge(cfg.Guard.DecisionCacheSize,
		guard.WithEdgeLogger(logger),
		guard.WithEdgeMetrics(metrics))
	if err != nil {
		return nil, err
	}
	client := guard.NewClient(sessions, cfg.Guard.RetryAfterSeconds,
		guard.WithClientLogger(logger),
		guard.WithClientMetrics(metrics),
		guard.WithClientAudit(auditLogger))

	pages := router.NewRoute().Subrouter()
	pages.Use(edge.Middleware, client.Middleware)
	registerPages(pages, sessions, auditLogger, metrics)

	return router, nil
}

// registerPages mounts the guarded application surface. Pages are JSON
// placeholders for the app shell; the gates on them are the real wiring.
func registerPages(pages *mux.Router, sessions *session.Store, auditLogger audit.Logger, metrics *observability.Metrics) {
	gates := gate.New(sessions, gate.WithMetrics(metrics), gate.WithAudit(auditLogger))

	page := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteSuccess(w, map[string]string{"page": name})
		})
	}

	for _, path := range []string{"/", "/login", "/register", "/forgot-password", "/reset-password"} {
		pages.Handle(path, page(path))
	}

	pages.Handle("/dashboard", page("dashboard"))
	pages.Handle("/system/dashboard", page("system-dashboard"))

	pages.Handle("/system/tenants",
		gates.RequirePermission(rbac.SystemTenantsView, page("system-tenants")))
	pages.Handle("/system/settings",
		gates.RequirePermission(rbac.SystemSettingsView, page("system-settings")))
	pages.Handle("/system/audit",
		gates.RequirePermission(rbac.SystemAuditView, page("system-audit")))

	pages.Handle("/users",
		gates.RequirePermission(rbac.TenantUsersView, page("users")))
	pages.Handle("/billing",
		gates.RequirePermission(rbac.TenantBillingView, page("billing")))
	pages.Handle("/settings",
		gates.RequirePermission(rbac.TenantSettingsView, page("settings")))
	pages.Handle("/inventory",
		gates.RequireModule("inventory", page("inventory")))
	pages.Handle("/reports",
		gates.RequireAllPermissions([]rbac.Token{rbac.TenantReportsView}, gates.RequireModule("reports", page("reports"))))
}

// buildHealthServer serves probes and metrics on the side port
func buildHealthServer(cfg *config.Config, sessions *session.Store, registry *prometheus.Registry) *http.Server {
	router := mux.NewRouter()
	api.NewHealthHandlers(sessions, version).RegisterRoutes(router)
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.Handler(registry))
	}
	return &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: router,
	}
}
