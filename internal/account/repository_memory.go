// AngelaMos | 2026
// repository_memory.go

package account

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

// MemoryRepository keeps accounts in process memory. It backs the memory
// driver and the engine tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
	order   map[string]uint64
	seq     uint64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
		order:   make(map[string]uint64),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
	}
	if _, ok := r.byID[account.ID]; ok {
		return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
	}

	now := r.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.byID[account.ID] = cloneAccount(*account)
	r.byEmail[account.Email] = account.ID
	r.seq++
	r.order[account.ID] = r.seq

	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}

	account := withoutPassword(stored)
	return &account, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}

	account := cloneAccount(r.byID[id])
	return &account, nil
}

func (r *MemoryRepository) GetCredentials(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("get credentials: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return "", fmt.Errorf("get credentials: %w", core.ErrNotFound)
	}

	return stored.PasswordHash, nil
}

func (r *MemoryRepository) FindMany(
	ctx context.Context,
	lookup Lookup,
	limit, offset int,
) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}

	r.mu.RLock()
	matches := make([]Account, 0)
	for _, stored := range r.byID {
		if lookup.Matches(&stored) {
			matches = append(matches, withoutPassword(stored))
		}
	}
	order := maps.Clone(r.order)
	r.mu.RUnlock()

	slices.SortFunc(matches, func(a, b Account) int {
		return cmp.Compare(order[a.ID], order[b.ID])
	})

	if offset >= len(matches) {
		return []Account{}, nil
	}
	matches = matches[offset:]
	if limit >= 0 && limit < len(matches) {
		matches = matches[:limit]
	}

	return matches, nil
}

func (r *MemoryRepository) Save(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ownerID, ok := r.byEmail[account.Email]; ok && ownerID != account.ID {
		return fmt.Errorf("save account: %w", core.ErrDuplicateKey)
	}

	now := r.now().UTC()
	next := cloneAccount(*account)
	next.UpdatedAt = now

	if stored, ok := r.byID[account.ID]; ok {
		next.CreatedAt = stored.CreatedAt
		if next.PasswordHash == "" {
			next.PasswordHash = stored.PasswordHash
		}
		if stored.Email != next.Email {
			delete(r.byEmail, stored.Email)
		}
	} else {
		next.CreatedAt = now
		r.seq++
		r.order[next.ID] = r.seq
	}

	r.byID[next.ID] = next
	r.byEmail[next.Email] = next.ID

	account.CreatedAt = next.CreatedAt
	account.UpdatedAt = next.UpdatedAt

	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("delete account: %w", core.ErrNotFound)
	}

	delete(r.byID, id)
	delete(r.byEmail, stored.Email)
	delete(r.order, id)

	return nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("delete all accounts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.byID))
	r.byID = make(map[string]Account)
	r.byEmail = make(map[string]string)
	r.order = make(map[string]uint64)

	return n, nil
}

// Matches evaluates the lookup against a single account the same way the
// database stores do.
func (l Lookup) Matches(a *Account) bool {
	switch l.Kind {
	case ByID:
		return a.ID == l.ID
	case ByEmailOrRole:
		return strings.EqualFold(a.Email, l.Email) || a.HasRole(l.Role)
	case Search:
		if l.Substring == "" {
			return true
		}
		return strings.Contains(
			strings.ToLower(a.Email),
			strings.ToLower(l.Substring),
		) || a.HasRole(l.Role)
	default:
		return false
	}
}

func cloneAccount(a Account) Account {
	a.Roles = slices.Clone(a.Roles)
	return a
}

func withoutPassword(a Account) Account {
	a = cloneAccount(a)
	a.PasswordHash = ""
	return a
}
