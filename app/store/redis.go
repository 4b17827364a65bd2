package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/avelier/doorkeeper/app/models"
)

// NewRedisStorage returns a Storage backed by Redis as a document store.
// Layout:
//
//	user:<id>                     -> user JSON document
//	user_email:<email>            -> user id          (by_email index)
//	session:<id>                  -> session JSON document
//	session_token:<sha256(token)> -> session id       (by_token index)
//	user_sessions:<user_id>       -> set of session ids (by_user index)
//	sessions                      -> set of all session ids (sweep scan)
//
// Session keys carry no TTL on purpose: an expired row must remain
// readable until the sweep deletes it, and validation rejects it by
// timestamp while it still exists.
func NewRedisStorage(rdb *goredis.Client) Storage {
	return Storage{
		Users:    &redisUsers{rdb: rdb},
		Sessions: &redisSessions{rdb: rdb},
	}
}

const (
	userKeyPrefix         = "user:"
	userEmailKeyPrefix    = "user_email:"
	sessionKeyPrefix      = "session:"
	sessionTokenKeyPrefix = "session_token:"
	userSessionsKeyPrefix = "user_sessions:"
	sessionSetKey         = "sessions"
)

// tokenKey hashes the token before using it as a key; issued tokens are
// long JWTs and the digest keeps index keys bounded.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionTokenKeyPrefix + hex.EncodeToString(sum[:])
}

type redisUsers struct {
	rdb *goredis.Client
}

func (s *redisUsers) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, userKeyPrefix+user.ID, doc, 0).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, userEmailKeyPrefix+user.Email, user.ID, 0).Err()
}

func (s *redisUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.rdb.Get(ctx, userEmailKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *redisUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	val, err := s.rdb.Get(ctx, userKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *redisUsers) Update(ctx context.Context, user *models.User) error {
	// Confirm the document exists so Update cannot resurrect a deleted user.
	if _, err := s.GetByID(ctx, user.ID); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, userKeyPrefix+user.ID, doc, 0).Err()
}

type redisSessions struct {
	rdb *goredis.Client
}

func (s *redisSessions) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()

	doc, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+session.ID, doc, 0).Err(); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, tokenKey(session.Token), session.ID, 0).Err(); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, userSessionsKeyPrefix+session.UserID, session.ID).Err(); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, sessionSetKey, session.ID).Err()
}

func (s *redisSessions) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	id, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.getByID(ctx, id)
}

func (s *redisSessions) getByID(ctx context.Context, id string) (*models.Session, error) {
	val, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessions) Delete(ctx context.Context, id string) error {
	session, err := s.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.rdb.Del(ctx, sessionKeyPrefix+id, tokenKey(session.Token)).Err(); err != nil {
		return err
	}
	if err := s.rdb.SRem(ctx, userSessionsKeyPrefix+session.UserID, id).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, sessionSetKey, id).Err()
}

// DeleteExpired walks the full session set and removes expired rows one
// by one. Sequential scan, no batching or pagination.
func (s *redisSessions) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.rdb.SMembers(ctx, sessionSetKey).Result()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		session, err := s.getByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Stale set entry; drop it.
				_ = s.rdb.SRem(ctx, sessionSetKey, id).Err()
				continue
			}
			return deleted, err
		}
		if !session.Expired(now) {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
