// AngelaMos | 2026
// dto.go

package account

import (
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type RegisterRequest struct {
	Email           string   `json:"email"           validate:"required,email,max=255"`
	Password        string   `json:"password"        validate:"required,min=6,max=50,strongpassword"`
	PasswordConfirm string   `json:"passwordConfirm" validate:"required"`
	Roles           []string `json:"roles,omitempty" validate:"omitempty,dive,required"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=50"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged; a
// non-nil empty Roles slice is rejected.
type UpdateRequest struct {
	Email           *string  `json:"email,omitempty"           validate:"omitempty,email,max=255"`
	Password        *string  `json:"password,omitempty"        validate:"omitempty,min=6,max=50,strongpassword"`
	PasswordConfirm *string  `json:"passwordConfirm,omitempty"`
	Roles           []string `json:"roles,omitempty"           validate:"omitempty,dive,required"`
	IsActive        *bool    `json:"isActive,omitempty"`
}

type ListParams struct {
	Limit  int    `json:"limit"  validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Search string `json:"search" validate:"omitempty,min=2"`
}

// Normalize fills defaults and clamps out-of-range values.
func (p *ListParams) Normalize() {
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AuthResponse struct {
	AccountResponse
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToAccountResponse(a *Account) AccountResponse {
	roles := []string(a.Roles)
	if roles == nil {
		roles = []string{}
	}
	return AccountResponse{
		ID:        a.ID,
		Email:     a.Email,
		IsActive:  a.IsActive,
		Roles:     roles,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func ToAccountResponseList(accounts []Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, ToAccountResponse(&accounts[i]))
	}
	return responses
}
