// AngelaMos | 2026
// service.go

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/metrics"
)

const tracerName = "iam-service/account"

type PasswordHasher interface {
	Hash(password string) (string, error)
	VerifyTimingSafe(password string, encodedHash *string) bool
	NeedsRehash(encodedHash string) bool
}

type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// Service is the account engine. It holds no per-request state; every
// operation is a single pass over the store without retries.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	resolver Resolver
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With("component", "account"),
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (resp *AuthResponse, err error) {
	ctx, done := s.begin(ctx, "register")
	defer func() { done(err) }()

	if req.Password != req.PasswordConfirm {
		return nil, fmt.Errorf(
			"register: %w",
			core.Public(core.ErrInvalidInput, "Passwords do not match"),
		)
	}

	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf(
			"register: %w",
			core.Public(core.ErrInvalidInput, "email is required"),
		)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return nil, fmt.Errorf("register: %w", err)
		}
		return nil, s.internal(ctx, "register", err)
	}

	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        NormalizeRoles(req.Roles),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, s.conflict(ctx, "register", email, err)
		}
		return nil, s.internal(ctx, "register", err)
	}

	return s.authResponse(ctx, "register", account)
}

var errInvalidCredentials = core.Public(core.ErrUnauthorized, "invalid credentials")

// Login authenticates by email and password. Unknown emails and wrong
// passwords fail with the same error after the same amount of hashing work.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (resp *AuthResponse, err error) {
	ctx, done := s.begin(ctx, "login")
	defer func() { done(err) }()

	account, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.hasher.VerifyTimingSafe(req.Password, nil)
			return nil, fmt.Errorf("login: %w", errInvalidCredentials)
		}
		return nil, s.internal(ctx, "login", err)
	}

	if !s.hasher.VerifyTimingSafe(req.Password, &account.PasswordHash) {
		return nil, fmt.Errorf("login: %w", errInvalidCredentials)
	}

	if s.hasher.NeedsRehash(account.PasswordHash) {
		s.rehash(ctx, *account, req.Password)
	}

	return s.authResponse(ctx, "login", account)
}

func (s *Service) rehash(ctx context.Context, account Account, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.DebugContext(ctx, "password rehash skipped", "error", err)
		return
	}

	account.PasswordHash = hash
	if err := s.repo.Save(ctx, &account); err != nil {
		s.logger.DebugContext(ctx, "password rehash not saved", "error", err)
		return
	}

	core.AddSpanEvent(ctx, "password rehashed")
}

// CheckStatus re-validates the session of an already authenticated caller
// and issues a fresh token.
func (s *Service) CheckStatus(
	ctx context.Context,
	accountID string,
) (resp *AuthResponse, err error) {
	ctx, done := s.begin(ctx, "check_status", attribute.String("account.id", accountID))
	defer func() { done(err) }()

	account, err := s.getByID(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "check status", err)
	}

	return s.authResponse(ctx, "check status", account)
}

// List returns a page of accounts. A UUID-shaped search returns at most the
// one account with that id and ignores paging.
func (s *Service) List(
	ctx context.Context,
	params ListParams,
) (accounts []Account, err error) {
	ctx, done := s.begin(ctx, "list")
	defer func() { done(err) }()

	params.Normalize()
	lookup := s.resolver.ResolveSearch(params.Search)

	if lookup.Kind == ByID {
		account, err := s.repo.GetByID(ctx, lookup.ID)
		if errors.Is(err, core.ErrNotFound) {
			return []Account{}, nil
		}
		if err != nil {
			return nil, s.internal(ctx, "list", err)
		}
		return []Account{*account}, nil
	}

	accounts, err = s.repo.FindMany(ctx, lookup, params.Limit, params.Offset)
	if err != nil {
		return nil, s.internal(ctx, "list", err)
	}

	return accounts, nil
}

func (s *Service) FindOne(
	ctx context.Context,
	term string,
) (account *Account, err error) {
	ctx, done := s.begin(ctx, "find_one")
	defer func() { done(err) }()

	lookup := s.resolver.Resolve(term)

	if lookup.Kind == ByID {
		account, err = s.repo.GetByID(ctx, lookup.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil, termNotFound(term)
		}
		if err != nil {
			return nil, s.internal(ctx, "find one", err)
		}
		return account, nil
	}

	matches, err := s.repo.FindMany(ctx, lookup, 1, 0)
	if err != nil {
		return nil, s.internal(ctx, "find one", err)
	}
	if len(matches) == 0 {
		return nil, termNotFound(term)
	}

	return &matches[0], nil
}

// Update merges the non-nil fields of req into the account. A new password
// is hashed before it is stored.
func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateRequest,
) (account *Account, err error) {
	ctx, done := s.begin(ctx, "update", attribute.String("account.id", id))
	defer func() { done(err) }()

	account, err = s.getByID(ctx, id)
	if err != nil {
		return nil, s.classify(ctx, "update", err)
	}

	account.PasswordHash = ""

	if req.Password != nil {
		if req.PasswordConfirm != nil && *req.PasswordConfirm != *req.Password {
			return nil, fmt.Errorf(
				"update: %w",
				core.Public(core.ErrInvalidInput, "Passwords do not match"),
			)
		}

		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			if errors.Is(err, core.ErrInvalidInput) {
				return nil, fmt.Errorf("update: %w", err)
			}
			return nil, s.internal(ctx, "update", err)
		}
		account.PasswordHash = hash
	}

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if email == "" {
			return nil, fmt.Errorf(
				"update: %w",
				core.Public(core.ErrInvalidInput, "email must not be empty"),
			)
		}
		account.Email = email
	}

	if req.Roles != nil {
		if len(req.Roles) == 0 {
			return nil, fmt.Errorf(
				"update: %w",
				core.Public(core.ErrInvalidInput, "roles must not be empty"),
			)
		}
		account.Roles = NormalizeRoles(req.Roles)
	}

	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, s.conflict(ctx, "update", account.Email, err)
		}
		return nil, s.internal(ctx, "update", err)
	}

	account.PasswordHash = ""
	return account, nil
}

func (s *Service) Remove(ctx context.Context, id string) (msg string, err error) {
	ctx, done := s.begin(ctx, "remove", attribute.String("account.id", id))
	defer func() { done(err) }()

	if !IsIDShaped(id) {
		return "", idNotFound(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", idNotFound(id)
		}
		return "", s.internal(ctx, "remove", err)
	}

	return fmt.Sprintf("Account with ID %q has been deleted successfully", id), nil
}

// RemoveAll irreversibly deletes every account. Authorization is the
// caller's responsibility.
func (s *Service) RemoveAll(ctx context.Context) (msg string, err error) {
	ctx, done := s.begin(ctx, "remove_all")
	defer func() { done(err) }()

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return "", s.internal(ctx, "remove all", err)
	}

	s.logger.WarnContext(ctx, "all accounts deleted", "count", deleted)

	return "All accounts have been deleted successfully", nil
}

// LoadCaller returns the principal the role guard authorizes.
func (s *Service) LoadCaller(
	ctx context.Context,
	accountID string,
) (caller *access.Caller, err error) {
	ctx, done := s.begin(ctx, "load_caller", attribute.String("account.id", accountID))
	defer func() { done(err) }()

	account, err := s.getByID(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "load caller", err)
	}

	return account.Caller(), nil
}

func (s *Service) getByID(ctx context.Context, id string) (*Account, error) {
	if !IsIDShaped(id) {
		return nil, idNotFound(id)
	}

	account, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, idNotFound(id)
	}
	return account, err
}

func (s *Service) authResponse(
	ctx context.Context,
	op string,
	account *Account,
) (*AuthResponse, error) {
	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, s.internal(ctx, op, fmt.Errorf("issue token: %w", err))
	}
	metrics.TokensIssuedTotal.Inc()

	account.PasswordHash = ""

	return &AuthResponse{
		AccountResponse: ToAccountResponse(account),
		Token:           token,
	}, nil
}

// classify passes taxonomy errors through and turns anything else into an
// internal fault.
func (s *Service) classify(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrUnauthorized):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return s.internal(ctx, op, err)
	}
}

func (s *Service) conflict(ctx context.Context, op, email string, err error) error {
	s.logger.WarnContext(ctx, "account conflict",
		"operation", op,
		"email", email,
		"error", err,
	)
	return fmt.Errorf(
		"%s: %w",
		op,
		core.Public(core.ErrConflict, "Account with email %q already exists", email),
	)
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "account operation failed",
		"operation", op,
		"error", err,
	)
	core.SetSpanError(ctx, err)
	return fmt.Errorf("%s: %w: %w", op, core.ErrInternal, err)
}

func (s *Service) begin(
	ctx context.Context,
	op string,
	attrs ...attribute.KeyValue,
) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := core.StartSpan(ctx, tracerName, "account."+op, attrs...)

	return ctx, func(err error) {
		metrics.ObserveOperation(op, outcome(err), started)
		span.End()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrInternal):
		return "internal"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func idNotFound(id string) error {
	return core.Public(core.ErrNotFound, "Account with ID %q not found", id)
}

func termNotFound(term string) error {
	return core.Public(core.ErrNotFound, "Account with term %q not found", term)
}
