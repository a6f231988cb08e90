// AngelaMos | 2026
// handler_test.go

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/account"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/middleware"
)

type stubAuthenticator struct {
	registered []account.RegisterRequest
	loginErr   error
	checkedID  string
}

func (s *stubAuthenticator) Register(
	_ context.Context,
	req account.RegisterRequest,
) (*account.AuthResponse, error) {
	s.registered = append(s.registered, req)
	return &account.AuthResponse{
		AccountResponse: account.AccountResponse{ID: "acc-1", Email: req.Email},
		Token:           "token-1",
	}, nil
}

func (s *stubAuthenticator) Login(
	_ context.Context,
	req account.LoginRequest,
) (*account.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &account.AuthResponse{
		AccountResponse: account.AccountResponse{ID: "acc-1", Email: req.Email},
		Token:           "token-2",
	}, nil
}

func (s *stubAuthenticator) CheckStatus(
	_ context.Context,
	accountID string,
) (*account.AuthResponse, error) {
	s.checkedID = accountID
	return &account.AuthResponse{
		AccountResponse: account.AccountResponse{ID: accountID},
		Token:           "token-3",
	}, nil
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

func newTestRouter(svc Authenticator, caller *access.Caller) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, fakeAuthenticator(caller), nil)
	return r
}

func doJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) core.Response {
	t.Helper()
	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHandler_Register(t *testing.T) {
	svc := &stubAuthenticator{}
	h := newTestRouter(svc, nil)

	rec := doJSON(h, http.MethodPost, "/auth/register",
		`{"email":"new@example.com","password":"Secret123","passwordConfirm":"Secret123"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.registered, 1)
	assert.Equal(t, "new@example.com", svc.registered[0].Email)

	resp := decodeBody(t, rec)
	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "token-1", data["token"])
	assert.Equal(t, "acc-1", data["id"])
}

func TestHandler_RegisterValidation(t *testing.T) {
	tests := map[string]string{
		"malformed json": `{"email":`,
		"bad email":      `{"email":"nope","password":"Secret123","passwordConfirm":"Secret123"}`,
		"weak password":  `{"email":"a@example.com","password":"secret","passwordConfirm":"secret"}`,
		"long password":  `{"email":"a@example.com","password":"Aa1` + strings.Repeat("x", 50) + `","passwordConfirm":"x"}`,
		"no confirm":     `{"email":"a@example.com","password":"Secret123"}`,
		"blank role":     `{"email":"a@example.com","password":"Secret123","passwordConfirm":"Secret123","roles":[""]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &stubAuthenticator{}
			rec := doJSON(newTestRouter(svc, nil), http.MethodPost, "/auth/register", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.registered)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	h := newTestRouter(&stubAuthenticator{}, nil)

	rec := doJSON(h, http.MethodPost, "/auth/login",
		`{"email":"a@example.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeBody(t, rec).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "token-2", data["token"])
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthenticator{
		loginErr: fmt.Errorf("login: %w", core.Public(core.ErrUnauthorized, "invalid credentials")),
	}

	rec := doJSON(newTestRouter(svc, nil), http.MethodPost, "/auth/login",
		`{"email":"a@example.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid credentials", resp.Error.Message)
}

func TestHandler_CheckStatus(t *testing.T) {
	svc := &stubAuthenticator{}
	caller := &access.Caller{ID: "acc-9", Roles: []string{"user"}, Active: true}

	rec := doJSON(newTestRouter(svc, caller), http.MethodGet, "/auth/check-status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-9", svc.checkedID)
}

func TestHandler_CheckStatusRequiresCaller(t *testing.T) {
	svc := &stubAuthenticator{}

	rec := doJSON(newTestRouter(svc, nil), http.MethodGet, "/auth/check-status", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.checkedID)
}

func TestHandler_LimiterGuardsCredentialRoutes(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}

	svc := &stubAuthenticator{}
	caller := &access.Caller{ID: "acc-9", Active: true}
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, fakeAuthenticator(caller), blocked)

	rec := doJSON(r, http.MethodPost, "/auth/login", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doJSON(r, http.MethodGet, "/auth/check-status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
