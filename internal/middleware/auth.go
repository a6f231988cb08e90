// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/metrics"
)

type contextKey string

const CallerKey contextKey = "caller"

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type CallerLoader interface {
	LoadCaller(ctx context.Context, accountID string) (*access.Caller, error)
}

// Authenticator resolves the bearer token to a caller. Requests without a
// valid token, or whose account is gone or inactive, are rejected with 401.
func Authenticator(
	verifier TokenVerifier,
	loader CallerLoader,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			accountID, err := verifier.Verify(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			caller, err := loader.LoadCaller(r.Context(), accountID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					core.JSONError(
						w,
						core.UnauthorizedError("account no longer exists"),
					)
					return
				}
				core.InternalServerError(w, err)
				return
			}

			if !caller.Active {
				core.JSONError(w, core.UnauthorizedError("account is inactive"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// Authorize gates the handler behind the policy for op.
func Authorize(op access.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Authorize(GetCaller(r.Context()), op); err != nil {
				metrics.AuthorizationDecisionsTotal.
					WithLabelValues(string(op), "deny").Inc()

				if errors.Is(err, core.ErrForbidden) {
					core.JSONError(w, core.ForbiddenError(""))
					return
				}
				core.JSONError(w, core.UnauthorizedError(""))
				return
			}

			metrics.AuthorizationDecisionsTotal.
				WithLabelValues(string(op), "allow").Inc()

			next.ServeHTTP(w, r)
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func WithCaller(ctx context.Context, caller *access.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

func GetCaller(ctx context.Context) *access.Caller {
	if caller, ok := ctx.Value(CallerKey).(*access.Caller); ok {
		return caller
	}
	return nil
}

func GetAccountID(ctx context.Context) string {
	if caller := GetCaller(ctx); caller != nil {
		return caller.ID
	}
	return ""
}
