package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionsale/internal/platform/metrics"
	"sessionsale/pkg/platform/middleware/auth"
	"sessionsale/pkg/platform/middleware/metadata"
	"sessionsale/pkg/requestcontext"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token == "good" {
		return &auth.Claims{Subject: "admin-1", Role: auth.RoleAdmin}, nil
	}
	return nil, errors.New("bad token")
}

type echoRoutes struct{}

func (echoRoutes) Register(r chi.Router) {
	r.Get("/admin/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, _ = io.WriteString(w, string(requestcontext.ActorID(ctx))+"|"+requestcontext.RequestID(ctx))
	})
}

func newRouter(checks map[string]HealthCheck) http.Handler {
	return NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.NewWithRegisterer(prometheus.NewRegistry()),
		Validator: stubValidator{},
		Checks:    checks,
	}, echoRoutes{})
}

func TestRouterRequiresAdminToken(t *testing.T) {
	router := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set(metadata.HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1|req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(metadata.HeaderRequestID))
}

func TestHealthz(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		router := newRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"checks":{"postgres":"ok"}}`, w.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		router := newRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"checks":{"postgres":"ok","redis":"unavailable"}}`, w.Body.String())
	})
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newRouter(nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
