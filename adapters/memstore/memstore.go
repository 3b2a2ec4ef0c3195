// Package memstore provides an in-memory AuthStorage for examples and
// tests. It enforces the same uniqueness constraints as the real adapters.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mreyes/latch/core"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*core.User    // key: user id
	sessions map[string]*core.Session // key: token hash
}

var _ core.AuthStorage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]*core.User),
		sessions: make(map[string]*core.Session),
	}
}

// ctxErr maps context failure to the store error taxonomy before touching
// state, so a timed-out caller sees the same error shape a real store
// adapter would produce.
func ctxErr(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return core.ErrStoreTimeout
	default:
		return core.ErrStoreUnavailable
	}
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.ErrUserExists
		}
		if u.ProviderID != "" && existing.ProviderID == u.ProviderID {
			return core.ErrDuplicateProvider
		}
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()

	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (s *Store) GetUserByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ProviderID != "" && u.ProviderID == providerID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (s *Store) CreateSession(ctx context.Context, session *core.Session) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	s.sessions[session.TokenHash] = &clone
	return nil
}

func (s *Store) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *Store) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for hash, session := range s.sessions {
		if session.Principal.ID == userID {
			delete(s.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for hash, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, hash)
			count++
		}
	}
	return count, nil
}

// UserCount reports the number of stored users. Handy for idempotence
// assertions in tests.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
