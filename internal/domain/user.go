package domain

import (
	"strings"
	"time"
)

// Role is a coarse permission tier assigned to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Satisfies reports whether a holder of r may act where required is demanded.
// Admins satisfy every requirement.
func (r Role) Satisfies(required Role) bool {
	return r == RoleAdmin || r == required
}

// User represents a registered account of the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserChanges carries a partial update. Nil fields are left untouched.
type UserChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

// Empty reports whether no field is set.
func (c UserChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.PasswordHash == nil && c.Role == nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
