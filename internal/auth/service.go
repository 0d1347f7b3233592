package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/praxishealth/praxis/pkg/logging"
)

// MembershipChecker resolves a user's role within an organization.
// Implemented by the organizations repository.
type MembershipChecker interface {
	RoleOf(ctx context.Context, orgID, userID string) (string, error)
}

// Service implements sign-up, sign-in, and session resolution.
type Service struct {
	repo       Store
	cache      *SessionCache
	members    MembershipChecker
	sessionTTL time.Duration
	logger     *logging.Logger
}

// NewService wires the auth service.
func NewService(repo Store, cache *SessionCache, members MembershipChecker, sessionTTL time.Duration, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		cache:      cache,
		members:    members,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// SignUp creates an account and an initial session.
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*User, *Session, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.repo.CreateUser(ctx, strings.TrimSpace(req.Name), normalizeEmail(req.Email), hash)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return user, session, nil
}

// SignIn verifies credentials and issues a session.
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*User, *Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, nil, err
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		return nil, nil, ErrInvalidCredentials
	}
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user signed in", "user_id", user.ID)
	return user, session, nil
}

// SignOut deletes the session and its cache entry.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, token); err != nil {
		s.logger.Warn("session cache delete failed", "error", err)
	}
	return nil
}

// Resolve looks up a session token, preferring the cache. Cache misses fall
// through to Postgres and re-prime the cache.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	cached, err := s.cache.Get(ctx, token)
	if err != nil {
		s.logger.Warn("session cache read failed", "error", err)
	}
	if cached != nil {
		if cached.Expired(time.Now()) {
			return nil, ErrSessionNotFound
		}
		return cached, nil
	}
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache prime failed", "error", err)
	}
	return session, nil
}

// Identify resolves a token into the caller's identity, including the role
// in the active organization.
func (s *Service) Identify(ctx context.Context, token string) (Identity, error) {
	session, err := s.Resolve(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	ident := Identity{UserID: session.UserID, ActiveOrgID: session.ActiveOrgID}
	if session.ActiveOrgID != "" && s.members != nil {
		role, err := s.members.RoleOf(ctx, session.ActiveOrgID, session.UserID)
		if err == nil {
			ident.Role = role
		}
	}
	return ident, nil
}

// SetActiveOrganization switches the session's tenant after a membership check.
func (s *Service) SetActiveOrganization(ctx context.Context, token, orgID string) (*Session, error) {
	session, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.members != nil {
		if _, err := s.members.RoleOf(ctx, orgID, session.UserID); err != nil {
			return nil, ErrNotMember
		}
	}
	if err := s.repo.SetActiveOrg(ctx, token, orgID); err != nil {
		return nil, err
	}
	session.ActiveOrgID = orgID
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache update failed", "error", err)
	}
	return session, nil
}

// User fetches the account behind a session.
func (s *Service) User(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) createSession(ctx context.Context, userID string) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session, err := s.repo.CreateSession(ctx, token, userID, time.Now().Add(s.sessionTTL).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache prime failed", "error", err)
	}
	return session, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
