// AngelaMos | 2026
// handler_test.go

package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/middleware"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *core.ErrorBody  `json:"error"`
	Meta    *core.Pagination `json:"meta"`
}

func fakeAuthenticator(caller *access.Caller) func(http.Handler) http.Handler {
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

func (f *fixture) router(caller *access.Caller) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, fakeAuthenticator(caller))
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func userCaller(id string) *access.Caller {
	return &access.Caller{ID: id, Roles: []string{access.RoleUser}, Active: true}
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	f.register(t, "b@x.com", "admin")
	f.register(t, "c@y.org")

	code, env := serve(t, f.router(nil), http.MethodGet, "/accounts?limit=2&search=x.com", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, core.Pagination{Limit: 2, Offset: 0, Count: 2}, *env.Meta)

	var accounts []AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	require.Len(t, accounts, 2)
	assert.Equal(t, "a@x.com", accounts[0].Email)
	assert.Equal(t, "b@x.com", accounts[1].Email)
	assert.NotContains(t, string(env.Data), "password")
}

func TestHandler_ListRejectsBadParams(t *testing.T) {
	f := newFixture(t)
	h := f.router(nil)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "limit not a number", query: "limit=ten", want: "limit must be an integer"},
		{name: "offset not a number", query: "offset=-", want: "offset must be an integer"},
		{name: "limit too large", query: "limit=500"},
		{name: "negative offset", query: "offset=-1"},
		{name: "search too short", query: "search=a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := serve(t, h, http.MethodGet, "/accounts?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
			if tt.want != "" {
				assert.Equal(t, tt.want, env.Error.Message)
			}
		})
	}
}

func TestHandler_FindOne(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com", "auditor")
	h := f.router(nil)

	for _, term := range []string{alice.ID, "ALICE@x.com", "auditor"} {
		code, env := serve(t, h, http.MethodGet, "/accounts/"+term, "")
		require.Equal(t, http.StatusOK, code, term)

		var got AccountResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, alice.ID, got.ID)
	}

	code, env := serve(t, h, http.MethodGet, "/accounts/nobody", "")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, `Account with term "nobody" not found`, env.Error.Message)
}

func TestHandler_UpdateRequiresCaller(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com")

	code, env := serve(t, f.router(nil), http.MethodPatch, "/accounts/"+alice.ID, `{"isActive":false}`)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	assert.Equal(t, 1, f.repo.writes)
}

func TestHandler_Update(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com")
	h := f.router(userCaller(alice.ID))

	code, env := serve(t, h, http.MethodPatch, "/accounts/"+alice.ID,
		`{"email":"Alice2@x.com","roles":["Admin"]}`)
	require.Equal(t, http.StatusOK, code)

	var got AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "alice2@x.com", got.Email)
	assert.Equal(t, []string{"admin"}, got.Roles)
}

func TestHandler_UpdateRejects(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com")
	h := f.router(userCaller(alice.ID))

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
	}{
		{name: "non uuid id", target: "/accounts/alice@x.com", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "malformed body", target: "/accounts/" + alice.ID, body: `{"email":`, wantCode: http.StatusBadRequest},
		{name: "invalid email", target: "/accounts/" + alice.ID, body: `{"email":"nope"}`, wantCode: http.StatusBadRequest},
		{name: "weak password", target: "/accounts/" + alice.ID, body: `{"password":"abcdef"}`, wantCode: http.StatusBadRequest},
		{name: "unknown account", target: "/accounts/" + uuid.NewString(), body: `{}`, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := serve(t, h, http.MethodPatch, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHandler_Remove(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com")
	h := f.router(userCaller(alice.ID))

	code, env := serve(t, h, http.MethodDelete, "/accounts/"+alice.ID, "")
	require.Equal(t, http.StatusOK, code)

	var msg MessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Contains(t, msg.Message, alice.ID)

	code, _ = serve(t, h, http.MethodDelete, "/accounts/"+alice.ID, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = serve(t, h, http.MethodDelete, "/accounts/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_RemoveAllIsRoleGated(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@x.com")
	root := f.register(t, "root@x.com", "super-user")

	code, env := serve(t, f.router(userCaller(alice.ID)), http.MethodDelete, "/accounts", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	remaining, err := f.mem.FindMany(t.Context(), Lookup{Kind: Search}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	superUser := &access.Caller{ID: root.ID, Roles: root.Roles, Active: true}
	code, _ = serve(t, f.router(superUser), http.MethodDelete, "/accounts", "")
	assert.Equal(t, http.StatusOK, code)

	remaining, err = f.mem.FindMany(t.Context(), Lookup{Kind: Search}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
