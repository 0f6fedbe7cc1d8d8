// Package server assembles the HTTP router from the feature handlers.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	audithandler "task-tracker/backend/internal/audit/handler"
	auditrepo "task-tracker/backend/internal/audit/repository"
	healthhandler "task-tracker/backend/internal/health/handler"
	identityhandler "task-tracker/backend/internal/identity/handler"
	identityservice "task-tracker/backend/internal/identity/service"
	"task-tracker/backend/internal/metrics"
	"task-tracker/backend/internal/server/httpx"
	"task-tracker/backend/internal/server/middleware"
	sessionhandler "task-tracker/backend/internal/session/handler"
)

// Deps holds the dependencies for the HTTP handlers.
type Deps struct {
	// Auth backs /auth/* and /auth/sessions. If nil, those routes are not registered.
	Auth *identityservice.AuthService
	// Tokens validates access tokens on protected routes. Required when Auth is set.
	Tokens middleware.AccessTokenParser
	// AuditRepo backs /auth/activity. If nil, the route is not registered.
	AuditRepo auditrepo.Repository
	// HealthChecks are pinged by /readyz (e.g. "postgres": *sql.DB).
	HealthChecks map[string]healthhandler.Pinger
	// Metrics records per-route HTTP and auth metrics and is served at /metrics. May be nil.
	Metrics *metrics.Metrics
	// Log is the access and error logger. Defaults to slog.Default().
	Log *slog.Logger
}

// NewRouter returns the full handler chain: request id, access log, panic recovery and
// OpenTelemetry tracing around a ServeMux holding every route.
//
// Route → handler mapping:
//   - /auth/register, /auth/login, /auth/refresh, /auth/logout, /auth/me, /auth/me/optional → internal/identity/handler
//   - /auth/sessions → internal/session/handler
//   - /auth/activity → internal/audit/handler
//   - /healthz, /readyz → internal/health/handler
//   - /metrics → internal/metrics
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	var routes []httpx.Route
	if deps.Auth != nil {
		routes = append(routes, identityhandler.NewHandler(deps.Auth, deps.Metrics, log).Routes()...)
		routes = append(routes, sessionhandler.NewHandler(deps.Auth, log).Routes()...)
	}
	if deps.AuditRepo != nil {
		routes = append(routes, audithandler.NewHandler(deps.AuditRepo, log).Routes()...)
	}
	routes = append(routes, healthhandler.NewServer(deps.HealthChecks).Routes()...)

	mux := http.NewServeMux()
	var requireAuth func(http.Handler) http.Handler
	if deps.Tokens != nil {
		requireAuth = middleware.RequireAccessToken(deps.Tokens)
	}
	for _, rt := range routes {
		h := rt.Handler
		if rt.Protected {
			if requireAuth == nil {
				log.Warn("server: protected route skipped, no token parser", "route", rt.Pattern)
				continue
			}
			h = requireAuth(h)
		}
		mux.Handle(rt.Pattern, middleware.Instrument(deps.Metrics, rt.Pattern, h))
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	traced := otelhttp.NewHandler(mux, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return !isProbe(r.URL.Path) }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return middleware.Chain(traced,
		middleware.RequestID,
		middleware.AccessLog(log),
		middleware.Recover(log),
	)
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || strings.HasPrefix(path, "/metrics")
}
