package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/doorkeeper/app/models"
)

/*
Redis store cases:
- user documents round-trip through JSON with both indexes intact
- missing keys surface as ErrNotFound, not a redis error
- update refuses to resurrect a deleted user
- session create/lookup/delete maintains the token index and session set
- session keys carry no TTL; expired rows stay readable until swept
- delete-expired walks the session set, removes expired rows, and is idempotent
*/

func newRedisTestStorage(t *testing.T) (Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStorage(rdb), mr
}

func TestRedisUsersLifecycle(t *testing.T) {
	st, _ := newRedisTestStorage(t)
	ctx := context.Background()

	user := &models.User{
		Email:          "alice@example.com",
		Name:           "Alice",
		HashedPassword: "hash",
	}
	require.NoError(t, st.Users.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := st.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.HashedPassword)
	assert.False(t, byEmail.EmailVerified)

	byID, err := st.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = st.Users.GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUsersUpdate(t *testing.T) {
	st, _ := newRedisTestStorage(t)
	ctx := context.Background()

	user := &models.User{Email: "alice@example.com", Name: "Alice", HashedPassword: "hash"}
	require.NoError(t, st.Users.Create(ctx, user))

	user.Name = "Alice B."
	require.NoError(t, st.Users.Update(ctx, user))

	stored, err := st.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", stored.Name)

	err = st.Users.Update(ctx, &models.User{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionsLifecycle(t *testing.T) {
	st, mr := newRedisTestStorage(t)
	ctx := context.Background()

	session := &models.Session{
		UserID:    "user-1",
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, st.Sessions.Create(ctx, session))

	stored, err := st.Sessions.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)

	// No TTL on the document or the token index
	assert.Equal(t, time.Duration(0), mr.TTL(sessionKeyPrefix+session.ID))
	assert.Equal(t, time.Duration(0), mr.TTL(tokenKey("tok-1")))

	require.NoError(t, st.Sessions.Delete(ctx, session.ID))
	_, err = st.Sessions.GetByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, st.Sessions.Delete(ctx, session.ID))
}

func TestRedisExpiredSessionStaysReadableUntilSwept(t *testing.T) {
	st, _ := newRedisTestStorage(t)
	ctx := context.Background()

	session := &models.Session{
		UserID:    "user-1",
		Token:     "tok-old",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, st.Sessions.Create(ctx, session))

	// Expired by timestamp, but the row is still there
	stored, err := st.Sessions.GetByToken(ctx, "tok-old")
	require.NoError(t, err)
	assert.True(t, stored.Expired(time.Now()))

	deleted, err := st.Sessions.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = st.Sessions.GetByToken(ctx, "tok-old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisDeleteExpired(t *testing.T) {
	st, _ := newRedisTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	live := &models.Session{UserID: "u", Token: "live", ExpiresAt: now.Add(time.Hour)}
	dead1 := &models.Session{UserID: "u", Token: "dead1", ExpiresAt: now.Add(-time.Hour)}
	dead2 := &models.Session{UserID: "u", Token: "dead2", ExpiresAt: now.Add(-time.Minute)}
	for _, s := range []*models.Session{live, dead1, dead2} {
		require.NoError(t, st.Sessions.Create(ctx, s))
	}

	deleted, err := st.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = st.Sessions.GetByToken(ctx, "live")
	assert.NoError(t, err)

	deleted, err = st.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
