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

// Outcomes reported to an AttemptRecorder.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// AttemptRecorder observes the outcome of sign-up and sign-in attempts.
type AttemptRecorder interface {
	RecordAuthAttempt(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthAttempt(string, string) {}

// AuthResult is a freshly authenticated user and its session token.
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService describes the sign-up and sign-in workflows.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error)
	SignIn(ctx context.Context, in SignInInput) (*AuthResult, error)
}

// AuthConfig wires the collaborators of the auth workflow.
type AuthConfig struct {
	Users        repository.UserRepository
	Hasher       auth.Hasher
	Issuer       auth.Issuer
	Logger       logrus.FieldLogger
	Recorder     AttemptRecorder
	QueryTimeout time.Duration
}

type authService struct {
	users     repository.UserRepository
	hasher    auth.Hasher
	issuer    auth.Issuer
	logger    logrus.FieldLogger
	recorder  AttemptRecorder
	timeout   time.Duration
	dummyHash string
}

func NewAuthService(cfg AuthConfig) (AuthService, error) {
	if cfg.Users == nil || cfg.Hasher == nil || cfg.Issuer == nil {
		return nil, errors.New("auth service requires users, hasher and issuer")
	}
	s := &authService{
		users:    cfg.Users,
		hasher:   cfg.Hasher,
		issuer:   cfg.Issuer,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		timeout:  cfg.QueryTimeout,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}

	// compared against when the email is unknown so both sign-in failures cost the same
	dummy, err := s.hasher.Hash("acquisitions-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		s.recorder.RecordAuthAttempt("sign_up", OutcomeInvalidInput)
		return nil, err
	}

	result, err := s.signUp(ctx, in)
	switch {
	case err == nil:
		s.recorder.RecordAuthAttempt("sign_up", OutcomeSuccess)
	case errors.Is(err, ErrConflict):
		s.recorder.RecordAuthAttempt("sign_up", OutcomeConflict)
	default:
		s.recorder.RecordAuthAttempt("sign_up", OutcomeError)
	}
	return result, err
}

func (s *authService) signUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// a concurrent sign-up can pass the lookup and lose on the unique constraint
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueFor(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")
	return &AuthResult{User: sanitizeUser(user), Token: token}, nil
}

func (s *authService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		s.recorder.RecordAuthAttempt("sign_in", OutcomeInvalidInput)
		return nil, err
	}

	result, err := s.signIn(ctx, in)
	switch {
	case err == nil:
		s.recorder.RecordAuthAttempt("sign_in", OutcomeSuccess)
	case errors.Is(err, ErrInvalidCredentials):
		s.recorder.RecordAuthAttempt("sign_in", OutcomeInvalidCredentials)
	default:
		s.recorder.RecordAuthAttempt("sign_in", OutcomeError)
	}
	return result, err
}

func (s *authService) signIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = s.hasher.Verify(in.Password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.WithField("user_id", user.ID).Warn("sign-in rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueFor(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user signed in")
	return &AuthResult{User: sanitizeUser(user), Token: token}, nil
}

func (s *authService) issueFor(user *domain.User) (string, error) {
	token, err := s.issuer.Issue(auth.Claims{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
