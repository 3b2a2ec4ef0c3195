package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mreyes/latch/core"
)

// TokenIssuer binds a verified principal to a presentable credential and
// later resolves that credential back to the principal. The two
// implementations are mutually exclusive per deployment: store-backed
// sessions (revocable, server-side state) or signed bearer tokens
// (stateless, irrevocable).
type TokenIssuer interface {
	Issue(ctx context.Context, principal core.Principal) (string, error)
	Resolve(ctx context.Context, token string) (*core.Principal, error)
	Revoke(ctx context.Context, token string) error
}

// ============================================
// Session mode
// ============================================

// SessionIssuer delegates to the SessionManager: the issued string is an
// opaque random token whose hash indexes the session store.
type SessionIssuer struct {
	sessions *SessionManager
}

var _ TokenIssuer = (*SessionIssuer)(nil)

func NewSessionIssuer(sessions *SessionManager) *SessionIssuer {
	return &SessionIssuer{sessions: sessions}
}

func (i *SessionIssuer) Issue(ctx context.Context, principal core.Principal) (string, error) {
	result, err := i.sessions.Create(ctx, principal)
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

func (i *SessionIssuer) Resolve(ctx context.Context, token string) (*core.Principal, error) {
	session, err := i.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	principal := session.Principal
	return &principal, nil
}

func (i *SessionIssuer) Revoke(ctx context.Context, token string) error {
	return i.sessions.Destroy(ctx, token)
}

// ============================================
// Token mode
// ============================================

type bearerClaims struct {
	jwt.RegisteredClaims
	Name   string          `json:"name"`
	Method core.AuthMethod `json:"method"`
}

// BearerIssuer issues self-contained HS256 tokens. Possession of a
// correctly signed, unexpired token is proof of the embedded principal's
// identity; there is no revocation path. That is the trust model, not an
// oversight, so Revoke reports ErrRevocationUnsupported instead of
// pretending.
type BearerIssuer struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time // overridable in tests
}

var _ TokenIssuer = (*BearerIssuer)(nil)

func NewBearerIssuer(secret []byte, ttl time.Duration) *BearerIssuer {
	if ttl == 0 {
		ttl = 48 * time.Hour
	}
	return &BearerIssuer{secret: secret, ttl: ttl, now: time.Now}
}

func (i *BearerIssuer) Issue(_ context.Context, principal core.Principal) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name:   principal.Name,
		Method: principal.Method,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Resolve validates the signature and expiry and reconstructs the principal
// from the claims alone; no store lookup happens in this mode.
func (i *BearerIssuer) Resolve(_ context.Context, token string) (*core.Principal, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	claims := &bearerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, core.ErrInvalidToken
	}

	return &core.Principal{
		ID:     claims.Subject,
		Name:   claims.Name,
		Method: core.MethodToken,
	}, nil
}

func (i *BearerIssuer) Revoke(context.Context, string) error {
	return core.ErrRevocationUnsupported
}
