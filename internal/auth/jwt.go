// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/iam-service/internal/config"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

const accountIDClaim = "id"

// TokenManager issues and verifies HMAC-signed session tokens. The payload
// carries only the account id; tokens are not stored and cannot be revoked
// before they expire.
type TokenManager struct {
	key       jwk.Key
	algorithm jwa.SignatureAlgorithm
	expire    time.Duration
	issuer    string
}

func NewTokenManager(cfg config.JWTConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if cfg.Expire <= 0 {
		return nil, fmt.Errorf("jwt expire must be positive")
	}

	alg, err := signatureAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &TokenManager{
		key:       key,
		algorithm: alg,
		expire:    cfg.Expire,
		issuer:    cfg.Issuer,
	}, nil
}

func signatureAlgorithm(name string) (jwa.SignatureAlgorithm, error) {
	switch strings.ToUpper(name) {
	case "", "HS256":
		return jwa.HS256(), nil
	case "HS384":
		return jwa.HS384(), nil
	case "HS512":
		return jwa.HS512(), nil
	default:
		var none jwa.SignatureAlgorithm
		return none, fmt.Errorf("unsupported jwt algorithm %q", name)
	}
}

func (m *TokenManager) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("issue token: empty account id: %w", core.ErrInvalidInput)
	}

	now := time.Now()

	builder := jwt.NewBuilder().
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.expire)).
		Claim(accountIDClaim, accountID)

	if m.issuer != "" {
		builder = builder.Issuer(m.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(m.algorithm, m.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks the signature and time claims and returns the account id
// the token was issued for.
func (m *TokenManager) Verify(
	_ context.Context,
	tokenString string,
) (string, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(m.algorithm, m.key),
		jwt.WithValidate(true),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		if isTokenExpiredError(err) {
			return "", fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return "", fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var accountID string
	if err := token.Get(accountIDClaim, &accountID); err != nil || accountID == "" {
		return "", fmt.Errorf(
			"verify token: missing id claim: %w",
			core.ErrTokenInvalid,
		)
	}

	return accountID, nil
}

func isTokenExpiredError(err error) bool {
	return errors.Is(err, jwt.TokenExpiredError())
}
