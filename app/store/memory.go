package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelier/doorkeeper/app/models"
)

// NewMemoryStorage returns a Storage held entirely in process memory.
// Used by tests and local runs without external infrastructure.
func NewMemoryStorage() Storage {
	users := &memoryUsers{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
	}
	sessions := &memorySessions{
		byID:    make(map[string]models.Session),
		byToken: make(map[string]string),
	}
	return Storage{Users: users, Sessions: sessions}
}

type memoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func (s *memoryUsers) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	s.byID[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := user
	return &out, nil
}

func (s *memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := user
	return &out, nil
}

func (s *memoryUsers) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	s.byID[user.ID] = *user
	return nil
}

type memorySessions struct {
	mu      sync.RWMutex
	byID    map[string]models.Session
	byToken map[string]string
}

func (s *memorySessions) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()

	s.byID[session.ID] = *session
	s.byToken[session.Token] = session.ID
	return nil
}

func (s *memorySessions) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	session, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := session
	return &out, nil
}

func (s *memorySessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byToken, session.Token)
	return nil
}

func (s *memorySessions) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, session := range s.byID {
		if session.Expired(now) {
			delete(s.byID, id)
			delete(s.byToken, session.Token)
			deleted++
		}
	}
	return deleted, nil
}
