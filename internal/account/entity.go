// AngelaMos | 2026
// entity.go

package account

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
)

type Account struct {
	ID           string    `db:"id"            bson:"_id"                     json:"id"`
	Email        string    `db:"email"         bson:"email"                   json:"email"`
	PasswordHash string    `db:"password_hash" bson:"password_hash,omitempty" json:"-"`
	IsActive     bool      `db:"is_active"     bson:"is_active"               json:"isActive"`
	Roles        Roles     `db:"roles"         bson:"roles"                   json:"roles"`
	CreatedAt    time.Time `db:"created_at"    bson:"created_at"              json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at"    bson:"updated_at"              json:"updatedAt"`
}

func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// Caller projects the account onto the principal the role guard checks.
func (a *Account) Caller() *access.Caller {
	return &access.Caller{
		ID:     a.ID,
		Roles:  slices.Clone(a.Roles),
		Active: a.IsActive,
	}
}

// Roles scans a Postgres text[] column.
type Roles []string

func (r *Roles) Scan(src any) error {
	if src == nil {
		*r = nil
		return nil
	}

	var out []string
	if err := pgtype.NewMap().SQLScanner(&out).Scan(src); err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}

	*r = out
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRoles trims and lower-cases every role and drops blanks and
// duplicates, keeping first-seen order. An empty result becomes the default
// role set.
func NormalizeRoles(roles []string) Roles {
	out := make(Roles, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" || slices.Contains(out, role) {
			continue
		}
		out = append(out, role)
	}

	if len(out) == 0 {
		return DefaultRoles()
	}

	return out
}

func DefaultRoles() Roles {
	return Roles{access.RoleUser}
}
