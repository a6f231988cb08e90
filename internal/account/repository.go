// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

// Repository persists accounts. Missing records surface as core.ErrNotFound
// and unique email violations as core.ErrDuplicateKey. Each call is a single
// attempt.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	// GetByID does not load the password hash.
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByEmail loads the password hash for credential checks.
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// FindMany does not load password hashes.
	FindMany(ctx context.Context, lookup Lookup, limit, offset int) ([]Account, error)
	// Save inserts or updates the account. An empty PasswordHash keeps the
	// stored hash.
	Save(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// CredentialReader reads the stored password hash for an account id. No
// request path uses it; the store implementations expose it so tests can
// assert hashing and hash retention across updates.
type CredentialReader interface {
	GetCredentials(ctx context.Context, id string) (string, error)
}

var (
	_ CredentialReader = (*postgresRepository)(nil)
	_ CredentialReader = (*mongoRepository)(nil)
	_ CredentialReader = (*MemoryRepository)(nil)
)

const publicColumns = `id, email, is_active, roles, created_at, updated_at`

type postgresRepository struct {
	db core.DBTX
}

func NewPostgresRepository(db core.DBTX) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, account, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.IsActive,
		[]string(account.Roles),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + publicColumns + ` FROM accounts WHERE id = $1`

	var account Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

func (r *postgresRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	query := `
		SELECT id, email, password_hash, is_active, roles, created_at, updated_at
		FROM accounts
		WHERE email = $1`

	var account Account
	err := r.db.GetContext(ctx, &account, query, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &account, nil
}

func (r *postgresRepository) GetCredentials(
	ctx context.Context,
	id string,
) (string, error) {
	query := `SELECT password_hash FROM accounts WHERE id = $1`

	var hash string
	err := r.db.GetContext(ctx, &hash, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get credentials: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get credentials: %w", err)
	}

	return hash, nil
}

func (r *postgresRepository) FindMany(
	ctx context.Context,
	lookup Lookup,
	limit, offset int,
) ([]Account, error) {
	where, args := lookupCondition(lookup)

	query := `SELECT ` + publicColumns + ` FROM accounts`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += fmt.Sprintf(
		` ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		len(args)+1,
		len(args)+2,
	)
	args = append(args, limit, offset)

	accounts := []Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}

	return accounts, nil
}

func lookupCondition(lookup Lookup) (string, []any) {
	switch lookup.Kind {
	case ByID:
		return "id = $1", []any{lookup.ID}
	case ByEmailOrRole:
		return "(UPPER(email) = UPPER($1) OR $2 = ANY(roles))",
			[]any{lookup.Email, lookup.Role}
	case Search:
		if lookup.Substring == "" {
			return "", nil
		}
		return "(email ILIKE $1 OR $2 = ANY(roles))",
			[]any{"%" + escapeLike(lookup.Substring) + "%", lookup.Role}
	default:
		return "FALSE", nil
	}
}

func (r *postgresRepository) Save(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = COALESCE(
				NULLIF(EXCLUDED.password_hash, ''),
				accounts.password_hash
			),
			is_active = EXCLUDED.is_active,
			roles = EXCLUDED.roles,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, account, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.IsActive,
		[]string(account.Roles),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("save account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("save account: %w", err)
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete account: %w", core.ErrNotFound)
	}

	return nil
}

func (r *postgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts`)
	if err != nil {
		return 0, fmt.Errorf("delete all accounts: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all accounts: %w", err)
	}

	return rows, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
