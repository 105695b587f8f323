package repository

import (
	"context"
	"errors"

	"acquisitions-api/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when a write violates the email uniqueness constraint.
	ErrConflict = errors.New("user email already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id int64, changes domain.UserChanges) (*domain.User, error)
	Delete(ctx context.Context, id int64) (*domain.User, error)
}
