package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mreyes/latch/core"
)

// Test-only fakes implementing the storage ports. They store records in
// maps, enforce the same uniqueness rules as real adapters, and expose error
// fields for behavior injection.

type FakeUserStorage struct {
	mu        sync.RWMutex
	users     map[string]*core.User // key: user id
	createErr error
	getErr    error

	// providerMisses makes the next N provider-id lookups report not-found,
	// simulating the window where a concurrent create has not landed yet.
	providerMisses int
}

var _ core.UserStorage = (*FakeUserStorage)(nil)

func NewFakeUserStorage() *FakeUserStorage {
	return &FakeUserStorage{users: make(map[string]*core.User)}
}

func (f *FakeUserStorage) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	for _, existing := range f.users {
		if existing.Username == u.Username {
			return core.ErrUserExists
		}
		if u.ProviderID != "" && existing.ProviderID == u.ProviderID {
			return core.ErrDuplicateProvider
		}
	}

	u.ID = uuid.NewString()
	f.users[u.ID] = u
	return nil
}

func (f *FakeUserStorage) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (f *FakeUserStorage) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeUserStorage) GetUserByProviderID(_ context.Context, providerID string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.providerMisses > 0 {
		f.providerMisses--
		return nil, core.ErrUserNotFound
	}
	for _, u := range f.users {
		if u.ProviderID != "" && u.ProviderID == providerID {
			return u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeUserStorage) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.users)
}

type FakeSessionStorage struct {
	mu        sync.RWMutex
	sessions  map[string]*core.Session // key: token hash
	createErr error
	getErr    error
	deleteErr error
}

var _ core.SessionStorage = (*FakeSessionStorage)(nil)

func NewFakeSessionStorage() *FakeSessionStorage {
	return &FakeSessionStorage{sessions: make(map[string]*core.Session)}
}

func (f *FakeSessionStorage) CreateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeSessionStorage) GetSessionByHash(_ context.Context, tokenHash string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

func (f *FakeSessionStorage) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeSessionStorage) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	count := 0
	for hash, s := range f.sessions {
		if s.Principal.ID == userID {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (f *FakeSessionStorage) DeleteExpiredSessions(_ context.Context) (int, error) {
	return 0, nil
}

func (f *FakeSessionStorage) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}
