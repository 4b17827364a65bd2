package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/doorkeeper/app/models"
)

/*
Postgres store cases:
- user lookup by email scans all columns; no rows maps to ErrNotFound
- update reports ErrNotFound when zero rows are affected
- session lookup by token; delete-expired returns the affected row count
*/

func newPostgresTestStorage(t *testing.T) (Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStorage(db), mock
}

func TestPostgresGetUserByEmail(t *testing.T) {
	st, mock := newPostgresTestStorage(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "email", "name", "hashed_password", "email_verified", "created_at", "updated_at",
	}).AddRow("user-1", "alice@example.com", "Alice", "hash", false, now, now)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := st.Users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "hash", user.HashedPassword)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserByEmailNotFound(t *testing.T) {
	st, mock := newPostgresTestStorage(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "hashed_password", "email_verified", "created_at", "updated_at",
		}))

	_, err := st.Users.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateUserAssignsID(t *testing.T) {
	st, mock := newPostgresTestStorage(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "alice@example.com", Name: "Alice", HashedPassword: "hash"}
	require.NoError(t, st.Users.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissingUser(t *testing.T) {
	st, mock := newPostgresTestStorage(t)

	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Users.Update(context.Background(), &models.User{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSessionByToken(t *testing.T) {
	st, mock := newPostgresTestStorage(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
		AddRow("sess-1", "user-1", "tok-1", now.Add(time.Hour), now)

	mock.ExpectQuery(`FROM sessions WHERE token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(rows)

	session, err := st.Sessions.GetByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "user-1", session.UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteExpiredReportsCount(t *testing.T) {
	st, mock := newPostgresTestStorage(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := st.Sessions.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
