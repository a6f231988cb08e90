// AngelaMos | 2026
// resolver.go

package account

import (
	"strings"

	"github.com/google/uuid"
)

type LookupKind int

const (
	// ByID matches the account whose id equals Lookup.ID.
	ByID LookupKind = iota + 1
	// ByEmailOrRole matches accounts whose email equals Lookup.Email
	// (case-insensitive) or whose roles contain Lookup.Role.
	ByEmailOrRole
	// Search matches accounts whose email contains Lookup.Substring
	// (case-insensitive) or whose roles contain Lookup.Role. An empty
	// Search lookup matches every account.
	Search
)

func (k LookupKind) String() string {
	switch k {
	case ByID:
		return "by_id"
	case ByEmailOrRole:
		return "by_email_or_role"
	case Search:
		return "search"
	default:
		return "unknown"
	}
}

// Lookup is a store-independent match predicate.
type Lookup struct {
	Kind      LookupKind
	ID        string
	Email     string
	Role      string
	Substring string
}

// Resolver turns free-form terms into lookups. A term shaped like a UUID is
// always treated as an id, even when it also equals a role name.
type Resolver struct{}

func (Resolver) Resolve(term string) Lookup {
	if id, ok := parseID(term); ok {
		return Lookup{Kind: ByID, ID: id}
	}

	return Lookup{
		Kind:  ByEmailOrRole,
		Email: NormalizeEmail(term),
		Role:  strings.ToLower(strings.TrimSpace(term)),
	}
}

func (Resolver) ResolveSearch(search string) Lookup {
	if id, ok := parseID(search); ok {
		return Lookup{Kind: ByID, ID: id}
	}

	return Lookup{
		Kind:      Search,
		Substring: search,
		Role:      search,
	}
}

// IsIDShaped reports whether term is a canonical 36 character UUID.
func IsIDShaped(term string) bool {
	_, ok := parseID(term)
	return ok
}

func parseID(term string) (string, bool) {
	term = strings.TrimSpace(term)
	if len(term) != 36 {
		return "", false
	}

	id, err := uuid.Parse(term)
	if err != nil {
		return "", false
	}

	return id.String(), true
}
