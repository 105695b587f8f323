package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/repository"
)

var columns = []string{"id", "name", "email", "password", "role", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (repository.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewUserRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(name, email, password, role, created_at, updated_at\).*RETURNING\s+id$`).
		WithArgs("Alice Smith", "alice@ex.com", "hash", "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user := &domain.User{Name: "Alice Smith", Email: "ALICE@EX.com", PasswordHash: "hash"}
	id, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice@ex.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), &domain.User{Name: "Alice Smith", Email: "alice@ex.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &domain.User{Name: "Alice Smith", Email: "alice@ex.com", PasswordHash: "hash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrConflict)
	assert.Contains(t, err.Error(), "db down")
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)^SELECT\s+id, name, email, password, role, created_at, updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("alice@ex.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "Alice Smith", "alice@ex.com", "hash", "admin", now, now))

	user, err := repo.GetByEmail(context.Background(), " Alice@Ex.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT .* FROM users WHERE id = \$1$`).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)^SELECT .* FROM users ORDER BY id$`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "Alice Smith", "alice@ex.com", "hash", "user", now, now).
			AddRow(int64(2), "Bobby Jones", "bob@ex.com", "hash", "admin", now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob@ex.com", users[1].Email)
}

func TestUpdate_BuildsPositionalArgs(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	name := "Alice Cooper"
	role := domain.RoleAdmin
	mock.ExpectQuery(`(?s)^UPDATE users SET updated_at = \$1, name = \$2, role = \$3 WHERE id = \$4 RETURNING id, name`).
		WithArgs(sqlmock.AnyArg(), "Alice Cooper", "admin", int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(3), "Alice Cooper", "alice@ex.com", "hash", "admin", now, now))

	user, err := repo.Update(context.Background(), 3, domain.UserChanges{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", user.Name)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestUpdate_Conflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	email := "bob@ex.com"
	mock.ExpectQuery(`(?s)^UPDATE users SET updated_at = \$1, email = \$2 WHERE id = \$3`).
		WithArgs(sqlmock.AnyArg(), "bob@ex.com", int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Update(context.Background(), 1, domain.UserChanges{Email: &email})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	name := "Nobody Here"
	mock.ExpectQuery(`(?s)^UPDATE users`).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Update(context.Background(), 9, domain.UserChanges{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)^DELETE FROM users WHERE id = \$1 RETURNING`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(2), "Bobby Jones", "bob@ex.com", "hash", "user", now, now))

	user, err := repo.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "bob@ex.com", user.Email)
}
