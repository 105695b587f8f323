package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/repository"
)

func newTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func createUser(t *testing.T, repo repository.UserRepository, name, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: name, Email: email, PasswordHash: "$2a$10$hash"}
	_, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "Alice Smith", "ALICE@EX.com")
	assert.Positive(t, user.ID)
	assert.Equal(t, "alice@ex.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)

	byEmail, err := repo.GetByEmail(ctx, "Alice@Ex.Com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "$2a$10$hash", byEmail.PasswordHash)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", byID.Name)
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	createUser(t, repo, "Alice Smith", "alice@ex.com")

	_, err := repo.Create(context.Background(), &domain.User{Name: "Other", Email: "ALICE@ex.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestUserRepositoryGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByEmail(context.Background(), "nobody@ex.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryList(t *testing.T) {
	repo := newTestRepo(t)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)

	createUser(t, repo, "Alice Smith", "alice@ex.com")
	createUser(t, repo, "Bobby Jones", "bob@ex.com")

	users, err = repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice@ex.com", users[0].Email)
	assert.Equal(t, "bob@ex.com", users[1].Email)
}

func TestUserRepositoryUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "Alice Smith", "alice@ex.com")

	name := "Alice Cooper"
	role := domain.RoleAdmin
	updated, err := repo.Update(ctx, user.ID, domain.UserChanges{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.Name)
	assert.Equal(t, domain.RoleAdmin, updated.Role)
	assert.Equal(t, "alice@ex.com", updated.Email)

	_, err = repo.Update(ctx, 999, domain.UserChanges{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryUpdateEmailConflict(t *testing.T) {
	repo := newTestRepo(t)
	createUser(t, repo, "Alice Smith", "alice@ex.com")
	bob := createUser(t, repo, "Bobby Jones", "bob@ex.com")

	email := "ALICE@ex.com"
	_, err := repo.Update(context.Background(), bob.ID, domain.UserChanges{Email: &email})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestUserRepositoryDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "Alice Smith", "alice@ex.com")

	deleted, err := repo.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)

	_, err = repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Delete(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, NewUserRepository(db).Init(context.Background()))

	insert := `INSERT INTO users (name, email, password, role, created_at, updated_at) VALUES (?, ?, 'x', 'user', ?, ?)`
	now := time.Now().UTC()
	_, err = db.Exec(insert, "Alice Smith", "alice@ex.com", now, now)
	require.NoError(t, err)

	_, dupErr := db.Exec(insert, "Alice Again", "alice@ex.com", now, now)
	require.Error(t, dupErr)
	assert.True(t, isUniqueViolation(dupErr))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert user: %w", dupErr)))

	_, notNullErr := db.Exec(`INSERT INTO users (name, email, password, role, created_at, updated_at) VALUES (NULL, 'bob@ex.com', 'x', 'user', ?, ?)`, now, now)
	require.Error(t, notNullErr)
	assert.False(t, isUniqueViolation(notNullErr))

	assert.False(t, isUniqueViolation(errors.New("unique index rebuild failed")))
}
