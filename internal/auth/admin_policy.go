package auth

import "formini/internal/model"

// AdminPolicy identifies the single configuration-pinned administrator.
type AdminPolicy struct {
	email string
}

// NewAdminPolicy pins the administrator to email.
func NewAdminPolicy(email string) AdminPolicy {
	return AdminPolicy{email: model.NormalizeEmail(email)}
}

// Email returns the pinned administrator email.
func (p AdminPolicy) Email() string {
	return p.email
}

// IsReservedEmail reports whether email belongs to the pinned administrator.
func (p AdminPolicy) IsReservedEmail(email string) bool {
	return p.email != "" && model.NormalizeEmail(email) == p.email
}

// IsProtectedPrincipal reports whether u is the pinned administrator. That
// account bypasses verification, suspension and the second factor, and can
// never be modified through the status toggle.
func (p AdminPolicy) IsProtectedPrincipal(u *model.User) bool {
	return u != nil && u.Role == model.RoleAdmin && p.IsReservedEmail(u.Email)
}
