package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/repository"
)

// UserService describes administrative user operations.
type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users   repository.UserRepository
	hasher  auth.Hasher
	logger  logrus.FieldLogger
	timeout time.Duration
}

func NewUserService(users repository.UserRepository, hasher auth.Hasher, logger logrus.FieldLogger, queryTimeout time.Duration) UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &userService{
		users:   users,
		hasher:  hasher,
		logger:  logger,
		timeout: queryTimeout,
	}
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = *sanitizeUser(&users[i])
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapDirectoryError(err, "get user")
	}
	return sanitizeUser(user), nil
}

// Update applies a partial update on behalf of actor. Non-admins may only
// update themselves and their role field is ignored.
func (s *userService) Update(ctx context.Context, actor auth.Identity, id int64, in UpdateUserInput) (*domain.User, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := auth.AuthorizeUserMutation(&actor, id); err != nil {
		return nil, err
	}

	changes := domain.UserChanges{
		Name:  in.Name,
		Email: in.Email,
	}
	if actor.IsAdmin() {
		changes.Role = in.Role
	} else if in.Role != nil {
		s.logger.WithFields(logrus.Fields{"actor_id": actor.ID, "user_id": id}).Debug("ignoring role change from non-admin")
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes.PasswordHash = &hash
	}

	if changes.Empty() {
		return s.Get(ctx, id)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.Update(ctx, id, changes)
	if err != nil {
		return nil, mapDirectoryError(err, "update user")
	}

	s.logger.WithFields(logrus.Fields{"actor_id": actor.ID, "user_id": id}).Info("user updated")
	return sanitizeUser(user), nil
}

func (s *userService) Delete(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, mapDirectoryError(err, "delete user")
	}

	s.logger.WithFields(logrus.Fields{"user_id": id, "email": user.Email}).Info("user deleted")
	return sanitizeUser(user), nil
}

func mapDirectoryError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
