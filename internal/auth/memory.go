package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store used in tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User // keyed by id
	byEmail  map[string]string
	sessions map[string]*Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

func (s *InMemoryStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}
	user := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return user, nil
}

func (s *InMemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	u := *s.users[id]
	return &u, nil
}

func (s *InMemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	u := *user
	return &u, nil
}

func (s *InMemoryStore) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[token] = session
	out := *session
	return &out, nil
}

func (s *InMemoryStore) GetSession(ctx context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok || session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

func (s *InMemoryStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *InMemoryStore) SetActiveOrg(ctx context.Context, token, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	session.ActiveOrgID = orgID
	return nil
}
