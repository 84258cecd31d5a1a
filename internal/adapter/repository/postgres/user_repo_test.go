package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/booklend/internal/domain"
)

func TestUserRepository_CreateDuplicateUsername(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("u1", "alice", "hash", "member", now).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintUsernameUnique})

	err := repo.Create(context.Background(), &domain.User{
		ID: "u1", Username: "alice", HashedPassword: "hash", Role: domain.RoleMember, CreatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	assertExpectations(t, mock)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "hashed_password", "role", "created_at"}).
			AddRow("u1", "alice", "hash", "admin", now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("bob").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = repo.GetByUsername(context.Background(), "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assertExpectations(t, mock)
}

func TestUserRepository_DeleteMissing(t *testing.T) {
	mock := newMockPool(t)
	tx := beginMockTx(t, mock)
	repo := NewUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("nobody").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), tx, "nobody"), domain.ErrUserNotFound)
	assertExpectations(t, mock)
}

func TestUserRepository_LockedReads(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	columns := []string{"id", "username", "hashed_password", "role", "created_at"}

	mock := newMockPool(t)
	tx := beginMockTx(t, mock)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FOR SHARE")).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(columns).AddRow("u1", "alice", "hash", "member", now))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByIDForShare(context.Background(), tx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = repo.GetByIDForUpdate(context.Background(), tx, "gone")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assertExpectations(t, mock)
}

func TestUserRepository_DeleteRequiresPostgresTx(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	assert.Error(t, repo.Delete(context.Background(), fakeTx{}, "u1"))
	assertExpectations(t, mock)
}
