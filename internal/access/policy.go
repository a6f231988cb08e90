// AngelaMos | 2026
// policy.go

package access

import (
	"fmt"
	"slices"

	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleSuperUser = "super-user"
)

type Operation string

const (
	OpRegister    Operation = "register"
	OpLogin       Operation = "login"
	OpCheckStatus Operation = "check_status"
	OpList        Operation = "list"
	OpFindOne     Operation = "find_one"
	OpUpdate      Operation = "update"
	OpRemove      Operation = "remove"
	OpRemoveAll   Operation = "remove_all"
	OpAdminStats  Operation = "admin_stats"
)

// Rule describes who may invoke an operation. A rule with AnyRole set also
// requires authentication.
type Rule struct {
	Authenticated bool
	AnyRole       []string
}

// Policies is the route protection table. Operations missing from the table
// are denied.
var Policies = map[Operation]Rule{
	OpRegister:    {},
	OpLogin:       {},
	OpList:        {},
	OpFindOne:     {},
	OpCheckStatus: {Authenticated: true},
	OpUpdate:      {Authenticated: true},
	OpRemove:      {Authenticated: true},
	OpRemoveAll:   {Authenticated: true, AnyRole: []string{RoleAdmin, RoleSuperUser}},
	OpAdminStats:  {Authenticated: true, AnyRole: []string{RoleAdmin, RoleSuperUser}},
}

// Caller is the authenticated principal of a request.
type Caller struct {
	ID     string
	Roles  []string
	Active bool
}

func (c *Caller) HasAnyRole(roles ...string) bool {
	if c == nil {
		return false
	}
	for _, role := range roles {
		if slices.Contains(c.Roles, role) {
			return true
		}
	}
	return false
}

// Authorize checks caller against the rule for op. A nil caller stands for an
// anonymous request.
func Authorize(caller *Caller, op Operation) error {
	rule, ok := Policies[op]
	if !ok {
		return fmt.Errorf("authorize %s: no policy: %w", op, core.ErrForbidden)
	}

	needsAuth := rule.Authenticated || len(rule.AnyRole) > 0
	if !needsAuth {
		return nil
	}

	if caller == nil || caller.ID == "" {
		return fmt.Errorf("authorize %s: %w", op, core.ErrUnauthorized)
	}

	if !caller.Active {
		return fmt.Errorf("authorize %s: account inactive: %w", op, core.ErrUnauthorized)
	}

	if len(rule.AnyRole) > 0 && !caller.HasAnyRole(rule.AnyRole...) {
		return fmt.Errorf("authorize %s: %w", op, core.ErrForbidden)
	}

	return nil
}
