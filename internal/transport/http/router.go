// Package httptransport composes the admin API: middleware, authenticated
// feature routes and the unauthenticated operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessionsale/internal/platform/metrics"
	"sessionsale/pkg/platform/httputil"
	"sessionsale/pkg/platform/middleware/auth"
	"sessionsale/pkg/platform/middleware/metadata"
	"sessionsale/pkg/platform/middleware/requesttime"
)

// healthTimeout bounds every dependency probe behind /healthz.
const healthTimeout = 2 * time.Second

// Routes is implemented by feature handlers.
type Routes interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config collects what the router needs. Checks and Metrics may be nil.
type Config struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator auth.TokenValidator
	Checks    map[string]HealthCheck
}

// NewRouter wires the middleware chain and mounts routes behind admin auth.
func NewRouter(cfg Config, routes ...Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.AccessLog(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Latency)
	}

	r.Get("/healthz", healthHandler(cfg.Checks, cfg.Logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(cfg.Validator, cfg.Logger))
		for _, rt := range routes {
			rt.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"checks": results})
	}
}
