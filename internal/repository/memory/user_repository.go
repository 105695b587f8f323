// Package memory provides a process-local user directory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (r *UserRepository) Init(context.Context) error {
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, exists := r.byEmail[email]; exists {
		return 0, fmt.Errorf("insert user: %w", repository.ErrConflict)
	}

	now := time.Now().UTC()
	r.nextID++
	user.ID = r.nextID
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	r.byID[user.ID] = *user
	r.byEmail[email] = user.ID
	return user.ID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, changes domain.UserChanges) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if changes.Email != nil {
		email := domain.NormalizeEmail(*changes.Email)
		if owner, exists := r.byEmail[email]; exists && owner != id {
			return nil, fmt.Errorf("update user %d: %w", id, repository.ErrConflict)
		}
		delete(r.byEmail, user.Email)
		user.Email = email
		r.byEmail[email] = id
	}
	if changes.Name != nil {
		user.Name = *changes.Name
	}
	if changes.PasswordHash != nil {
		user.PasswordHash = *changes.PasswordHash
	}
	if changes.Role != nil {
		user.Role = *changes.Role
	}
	user.UpdatedAt = time.Now().UTC()

	r.byID[id] = user
	return &user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, user.Email)
	return &user, nil
}
