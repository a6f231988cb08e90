// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/middleware"
)

func withCaller(caller *access.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller == nil {
				core.JSONError(w, core.UnauthorizedError(""))
				return
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithCaller(r.Context(), caller)))
		})
	}
}

func serve(
	t *testing.T,
	cfg HandlerConfig,
	caller *access.Caller,
	path string,
) (*httptest.ResponseRecorder, core.Response) {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r, withCaller(caller))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func decodeData[T any](t *testing.T, resp core.Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

var superUser = &access.Caller{ID: "root", Roles: []string{access.RoleSuperUser}, Active: true}

func postgresConfig() HandlerConfig {
	return HandlerConfig{
		Driver: "postgres",
		DBStats: func() sql.DBStats {
			return sql.DBStats{MaxOpenConnections: 25, OpenConnections: 3, InUse: 1, Idle: 2, WaitDuration: time.Second}
		},
		DBPing: func(context.Context) error { return nil },
		RedisStats: func() *redis.PoolStats {
			return &redis.PoolStats{Hits: 7, TotalConns: 2, IdleConns: 1}
		},
		RedisPing: func(context.Context) error { return errors.New("redis down") },
	}
}

func TestAdmin_RequiresPrivilegedCaller(t *testing.T) {
	rec, _ := serve(t, postgresConfig(), nil, "/admin/stats")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := &access.Caller{ID: "u1", Roles: []string{access.RoleUser}, Active: true}
	rec, resp := serve(t, postgresConfig(), user, "/admin/stats")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestAdmin_SystemStats(t *testing.T) {
	rec, resp := serve(t, postgresConfig(), superUser, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeData[SystemStatsResponse](t, resp)
	assert.Equal(t, "postgres", stats.Database.Driver)
	assert.True(t, stats.Database.Healthy)
	require.NotNil(t, stats.Database.Stats)
	assert.Equal(t, 25, stats.Database.Stats.MaxOpenConnections)
	assert.Equal(t, "1s", stats.Database.Stats.WaitDuration)

	assert.True(t, stats.Redis.Enabled)
	assert.False(t, stats.Redis.Healthy)
	require.NotNil(t, stats.Redis.Stats)
	assert.Equal(t, uint32(7), stats.Redis.Stats.Hits)

	assert.NotEmpty(t, stats.Runtime.GoVersion)
	assert.Positive(t, stats.Runtime.NumCPU)
}

func TestAdmin_MemoryDriverOmitsBackends(t *testing.T) {
	cfg := HandlerConfig{Driver: "memory"}

	rec, resp := serve(t, cfg, superUser, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeData[SystemStatsResponse](t, resp)
	assert.Equal(t, "memory", stats.Database.Driver)
	assert.False(t, stats.Database.Healthy)
	assert.Nil(t, stats.Database.Stats)
	assert.False(t, stats.Redis.Enabled)
	assert.Nil(t, stats.Redis.Stats)

	rec, _ = serve(t, cfg, superUser, "/admin/stats/db")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, cfg, superUser, "/admin/stats/redis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_PoolStatsEndpoints(t *testing.T) {
	rec, resp := serve(t, postgresConfig(), superUser, "/admin/stats/db")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeData[DBPoolStats](t, resp).OpenConnections)

	rec, resp = serve(t, postgresConfig(), superUser, "/admin/stats/redis")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint32(2), decodeData[RedisPoolStats](t, resp).TotalConns)

	rec, resp = serve(t, postgresConfig(), superUser, "/admin/stats/runtime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decodeData[RuntimeStats](t, resp).NumGoroutine)
}
