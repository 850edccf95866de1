package domain

import "time"

// Role constants. A principal's role is immutable once issued.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleAnalyst || r == RoleViewer
}

// Principal represents an authenticated actor subject to authorization checks.
type Principal struct {
	ID           int64
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// IsAdmin reports whether the principal carries the admin override.
func (p *Principal) IsAdmin() bool { return p.Role == RoleAdmin }
