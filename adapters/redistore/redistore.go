// Package redistore implements the session storage port on Redis. Expiry is
// native: every session key carries a TTL, so stale entries vanish without a
// sweep and DeleteExpiredSessions is a no-op.
package redistore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mreyes/latch/core"
)

const keyPrefix = "latch:session:"

type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

type Sessions struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ core.SessionStorage = (*Sessions)(nil)

// New connects to Redis and verifies the connection before returning.
func New(config Config, logger zerolog.Logger) (*Sessions, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", config.Addr).Int("db", config.DB).Msg("connected to redis session store")

	return &Sessions{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, logger zerolog.Logger) *Sessions {
	return &Sessions{client: client, logger: logger}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == context.DeadlineExceeded:
		return fmt.Errorf("%w: %v", core.ErrStoreTimeout, err)
	default:
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
}

func (s *Sessions) CreateSession(ctx context.Context, session *core.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return core.ErrSessionExpired
	}

	if err := s.client.Set(ctx, keyPrefix+session.TokenHash, payload, ttl).Err(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Sessions) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+tokenHash).Bytes()
	if err == redis.Nil {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}

	session := &core.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		s.logger.Warn().Err(err).Msg("discarding undecodable session payload")
		return nil, core.ErrSessionNotFound
	}
	// JSON drops the hash field; restore it from the key.
	session.TokenHash = tokenHash

	return session, nil
}

func (s *Sessions) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, keyPrefix+tokenHash).Err(); err != nil {
		return mapErr(err)
	}
	return nil
}

// DeleteUserSessions scans the keyspace for the user's sessions. Linear in
// the number of live sessions, acceptable at this design's scale.
func (s *Sessions) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	count := 0
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue // expired between scan and get
		}

		var session core.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		if session.Principal.ID != userID {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			return count, mapErr(err)
		}
		count++
	}
	if err := iter.Err(); err != nil {
		return count, mapErr(err)
	}

	return count, nil
}

// DeleteExpiredSessions is a no-op: Redis expires session keys natively.
func (s *Sessions) DeleteExpiredSessions(context.Context) (int, error) {
	return 0, nil
}
