// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthy() Checker {
	return pingFunc(func(context.Context) error { return nil })
}

func failing() Checker {
	return pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })
}

func get(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, ReadinessResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestLiveness(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: failing()})

	for _, path := range []string{"/healthz", "/livez"} {
		rec, resp := get(t, h, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantCode   int
		wantStatus string
		wantChecks int
	}{
		{
			name:       "no dependencies",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "nil checker skipped",
			deps:       []Dependency{{Name: "database"}},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "database", Checker: healthy()},
				{Name: "redis", Checker: healthy()},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: 2,
		},
		{
			name: "one failing",
			deps: []Dependency{
				{Name: "database", Checker: healthy()},
				{Name: "redis", Checker: failing()},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := get(t, NewHandler(tt.deps...), "/readyz")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, tt.wantChecks)
		})
	}
}

func TestReadiness_ReportsFailureWithoutDetail(t *testing.T) {
	_, resp := get(t, NewHandler(Dependency{Name: "mongo", Checker: failing()}), "/readyz")

	require.Len(t, resp.Checks, 1)
	check := resp.Checks[0]
	assert.Equal(t, "mongo", check.Name)
	assert.False(t, check.Healthy)
	assert.Equal(t, "ping failed", check.Message)
	assert.NotEmpty(t, check.Latency)
}

func TestReadiness_NotReady(t *testing.T) {
	h := NewHandler()
	h.SetReady(false)

	rec, resp := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", resp.Status)

	h.SetReady(true)
	rec, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdown(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: healthy()})
	h.SetShutdown(true)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, resp := get(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "shutting_down", resp.Status)
	}
}
