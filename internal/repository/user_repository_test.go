package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-api/internal/domain"
)

func newMockRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db), mock
}

var userRowColumns = []string{
	"id", "email", "username", "password_hash", "full_name", "is_active", "is_superuser", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (email, username, password_hash, full_name, is_active, is_superuser)")).
		WithArgs("ann@example.com", "ann", "hash", sqlmock.AnyArg(), true, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	user := &domain.User{Email: "ann@example.com", Username: "ann", PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, now, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUniqueViolation(t *testing.T) {
	cases := map[string]string{
		"users_email_key":    "email",
		"users_username_key": "username",
	}
	for constraint, field := range cases {
		t.Run(field, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			err := repo.Create(context.Background(), &domain.User{Email: "a@b.c", Username: "abc"})

			var dup *DuplicateError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, field, dup.Field)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=$1")).
		WithArgs("ann").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(3), "ann@example.com", "ann", "hash", "Ann Lee", true, false, now, now))

	user, err := repo.GetByUsername(context.Background(), "ann")
	require.NoError(t, err)

	assert.Equal(t, int64(3), user.ID)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Ann Lee", *user.FullName)
	assert.True(t, user.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDNullFullName(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=$1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(3), "ann@example.com", "ann", "hash", nil, true, true, now, now))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, user.FullName)
	assert.True(t, user.IsSuperuser)
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=$1")).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &domain.User{ID: 99, Email: "x@y.z", Username: "xyz"})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=$1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=$1")).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	require.ErrorIs(t, repo.Delete(context.Background(), 6), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
