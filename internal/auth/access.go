package auth

import (
	"fmt"

	"acquisitions-api/internal/domain"
)

// Identity is the authenticated caller derived from a verified session token.
type Identity struct {
	ID    int64
	Email string
	Role  domain.Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Authenticate turns an extracted session token into an Identity.
func Authenticate(token string, present bool, verifier Verifier) (Identity, error) {
	if !present || token == "" {
		return Identity{}, fmt.Errorf("access token required: %w", ErrUnauthorized)
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return Identity(claims), nil
}

// RequireRole checks that an authenticated identity satisfies role.
func RequireRole(identity *Identity, role domain.Role) error {
	if identity == nil {
		return fmt.Errorf("authentication required: %w", ErrUnauthorized)
	}
	if !identity.Role.Satisfies(role) {
		return fmt.Errorf("%s access required: %w", role, ErrForbidden)
	}
	return nil
}

// AuthorizeUserMutation allows admins to mutate any record and everyone else only their own.
func AuthorizeUserMutation(identity *Identity, targetID int64) error {
	if identity == nil {
		return fmt.Errorf("authentication required: %w", ErrUnauthorized)
	}
	if identity.IsAdmin() || identity.ID == targetID {
		return nil
	}
	return fmt.Errorf("user %d may not modify user %d: %w", identity.ID, targetID, ErrForbidden)
}
