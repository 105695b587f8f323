package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/repository"
	"acquisitions-api/internal/repository/memory"
)

type recordedAttempt struct {
	operation string
	outcome   string
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []recordedAttempt
}

func (r *fakeRecorder) RecordAuthAttempt(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, recordedAttempt{operation: operation, outcome: outcome})
}

func (r *fakeRecorder) last() recordedAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return recordedAttempt{}
	}
	return r.attempts[len(r.attempts)-1]
}

// failingRepo wraps a directory and injects errors per operation.
type failingRepo struct {
	repository.UserRepository
	getByEmailErr error
	createErr     error
}

func (f *failingRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	return f.UserRepository.GetByEmail(ctx, email)
}

func (f *failingRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.UserRepository.Create(ctx, user)
}

type fixture struct {
	repo     repository.UserRepository
	tokens   *auth.TokenManager
	hasher   auth.Hasher
	recorder *fakeRecorder
	logger   *logrus.Logger
	hook     *logtest.Hook
	auth     AuthService
	users    UserService
}

func newFixture(t *testing.T, repo repository.UserRepository) *fixture {
	t.Helper()
	if repo == nil {
		repo = memory.NewUserRepository()
	}
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		repo:     repo,
		tokens:   auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret"}),
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		recorder: &fakeRecorder{},
		logger:   logger,
		hook:     hook,
	}

	authSvc, err := NewAuthService(AuthConfig{
		Users:    repo,
		Hasher:   f.hasher,
		Issuer:   f.tokens,
		Logger:   logger,
		Recorder: f.recorder,
	})
	require.NoError(t, err)
	f.auth = authSvc
	f.users = NewUserService(repo, f.hasher, logger, 0)
	return f
}

func (f *fixture) signUp(t *testing.T, name, email string, role domain.Role) *AuthResult {
	t.Helper()
	res, err := f.auth.SignUp(context.Background(), SignUpInput{Name: name, Email: email, Password: "secret1", Role: role})
	require.NoError(t, err)
	return res
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	require.Contains(t, verr.Fields, field)
}
