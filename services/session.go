package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
)

type SessionConfig struct {
	// TTL is the absolute lifetime of a session from issuance.
	TTL time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{TTL: 24 * time.Hour}
}

// SessionManager owns the store-backed session lifecycle: it mints tokens,
// persists sessions keyed by token hash, and resolves raw tokens back to
// their principal. The cache is optional and purely an optimization; every
// cache failure degrades to a storage lookup.
type SessionManager struct {
	config  SessionConfig
	storage core.SessionStorage
	cache   core.Cache // nil disables caching
}

func NewSessionManager(config SessionConfig, storage core.SessionStorage, cache core.Cache) *SessionManager {
	if config.TTL == 0 {
		config = DefaultSessionConfig()
	}
	return &SessionManager{config: config, storage: storage, cache: cache}
}

type CreateSessionResult struct {
	Session *core.Session `json:"session"`
	Token   string        `json:"token"` // The raw token (not the hash)
}

func (sm *SessionManager) Create(ctx context.Context, principal core.Principal) (*CreateSessionResult, error) {
	token, err := crypto.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	session := &core.Session{
		ID:        uuid.NewString(),
		TokenHash: token.Hash,
		Principal: principal,
		ExpiresAt: now.Add(sm.config.TTL),
		CreatedAt: now,
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// We don't fail the request if caching fails
	if sm.cache != nil {
		_ = sm.cache.Set(token.Hash, session)
	}

	return &CreateSessionResult{Session: session, Token: token.Raw}, nil
}

// Verify resolves a raw token to its live session. Unknown tokens are
// ErrSessionNotFound, known-but-stale ones ErrSessionExpired.
func (sm *SessionManager) Verify(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil && session != nil {
			if time.Now().Before(session.ExpiresAt) {
				return session, nil
			}
			_ = sm.cache.Delete(tokenHash)
			return nil, core.ErrSessionExpired
		}
		// Cache miss - fall through to storage
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !crypto.VerifyTokenHash(token, session.TokenHash) {
		return nil, core.ErrInvalidToken
	}

	if time.Now().After(session.ExpiresAt) {
		_ = sm.storage.DeleteSessionByHash(ctx, tokenHash)
		return nil, core.ErrSessionExpired
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	return sm.storage.DeleteSessionByHash(ctx, tokenHash)
}

// DestroyAllUserSessions removes every session belonging to the user and
// clears the cache wholesale. Selective invalidation would require fetching
// all user sessions first, which defeats the point of the cache.
func (sm *SessionManager) DestroyAllUserSessions(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, core.ErrUserNotFound
	}

	count, err := sm.storage.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	if sm.cache != nil && count > 0 {
		_ = sm.cache.Clear()
	}

	return count, nil
}
