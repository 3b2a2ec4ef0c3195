package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines the persistence port for registered principals.
//
// Every call honors the caller's context deadline. Implementations map
// deadline expiry to ErrStoreTimeout and transport failures to
// ErrStoreUnavailable, and are expected to enforce uniqueness on username
// and on provider id where present; the concurrent-registration race is
// resolved by that constraint, not by application locking.
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByProviderID(ctx context.Context, providerID string) (*User, error)
}

// SessionStorage defines the session persistence port, keyed by token hash.
// Stores with native TTL support (redis) expire entries on their own;
// other implementations rely on the session manager's expiry check plus
// periodic DeleteExpiredSessions sweeps.
type SessionStorage interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// AuthStorage combines both ports for adapters that back everything with a
// single store.
type AuthStorage interface {
	UserStorage
	SessionStorage
}

// ============================================
// CACHE PORT
// ============================================

// Cache fronts hot session lookups. Failures are never fatal: callers treat
// every cache error as a miss.
type Cache interface {
	Get(tokenHash string) (*Session, error)
	Set(tokenHash string, session *Session) error
	Delete(tokenHash string) error
	Clear() error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats interface {
	Cache
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}
