// Package latch is a framework-agnostic credential-lifecycle and
// authentication-policy library: it decides how a plaintext secret becomes a
// stored credential, how a stored credential is checked against a login
// attempt, and how a verified identity becomes a session or bearer token.
// Persistence, caching and HTTP are ports with adapters under adapters/.
package latch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
	"github.com/mreyes/latch/services"
)

// interfaces
type (
	UserStorage    = core.UserStorage
	SessionStorage = core.SessionStorage
	AuthStorage    = core.AuthStorage
	Cache          = core.Cache

	Encoder     = crypto.Encoder
	TokenIssuer = services.TokenIssuer
)

// structs
type (
	User      = core.User
	Principal = core.Principal
	Session   = core.Session
	Profile   = core.Profile

	RegisterRequest = core.RegisterRequest
	LoginRequest    = core.LoginRequest
	AuthResult      = core.AuthResult
	RegisterResult  = core.RegisterResult

	Scheme           = crypto.Scheme
	StoredCredential = crypto.StoredCredential

	CacheConfig   = core.CacheConfig
	SessionConfig = services.SessionConfig
)

const (
	SchemeNone   = crypto.SchemeNone
	SchemeAES    = crypto.SchemeAES
	SchemeMD5    = crypto.SchemeMD5
	SchemeBcrypt = crypto.SchemeBcrypt
	SchemeArgon2 = crypto.SchemeArgon2
)

// Mode selects how verified identities are carried between requests.
// The two modes are mutually exclusive per deployment.
type Mode string

const (
	// ModeSession stores server-side sessions addressed by an opaque token.
	ModeSession Mode = "session"
	// ModeBearer issues signed, self-contained, irrevocable tokens.
	ModeBearer Mode = "bearer"
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = core.NewInMemoryCache
	NewEncoder           = crypto.NewEncoder
	DefaultSessionConfig = services.DefaultSessionConfig
)

var (
	ErrUserExists         = core.ErrUserExists
	ErrUserNotFound       = core.ErrUserNotFound
	ErrDuplicateProvider  = core.ErrDuplicateProvider
	ErrInvalidCredentials = core.ErrInvalidCredentials
)

var (
	ErrInvalidToken          = core.ErrInvalidToken
	ErrTokenExpired          = core.ErrTokenExpired
	ErrSessionNotFound       = core.ErrSessionNotFound
	ErrSessionExpired        = core.ErrSessionExpired
	ErrRevocationUnsupported = core.ErrRevocationUnsupported
)

var (
	ErrUsernameRequired  = core.ErrUsernameRequired
	ErrPasswordRequired  = core.ErrPasswordRequired
	ErrPlaintextRequired = crypto.ErrPlaintextRequired
	ErrCorruptCredential = crypto.ErrCorruptCredential
)

var (
	ErrStoreUnavailable = core.ErrStoreUnavailable
	ErrStoreTimeout     = core.ErrStoreTimeout
)

var (
	ErrUserStorageRequired    = core.ErrUserStorageRequired
	ErrSessionStorageRequired = core.ErrSessionStorageRequired
	ErrSecretRequired         = core.ErrSecretRequired
	ErrSecretTooShort         = core.ErrSecretTooShort
	ErrUnknownMode            = core.ErrUnknownMode
)

const minSecretLen = 32

// Config assembles a deployment's authentication policy. Scheme and Mode
// are deployment-wide choices; the per-record scheme tag only exists so
// that records written before a migration stay verifiable.
type Config struct {
	// Secret signs bearer tokens. Required in ModeBearer, ≥ 32 bytes.
	Secret string

	// Users is the persistence port for registered principals. Required.
	Users core.UserStorage

	// Sessions is the session store. Required in ModeSession.
	Sessions core.SessionStorage

	// Mode defaults to ModeSession.
	Mode Mode

	// Scheme defaults to SchemeBcrypt.
	Scheme crypto.Scheme

	// EncryptionKey is the 32-byte key for SchemeAES.
	EncryptionKey []byte

	// Optional config
	BcryptCost    int
	SessionConfig *services.SessionConfig
	BearerTTL     time.Duration
	CacheAdapter  core.Cache
	DisableCache  bool
	Logger        *zerolog.Logger
}

// Latch is the constructed authentication policy: an explicit value passed
// to whatever builds the request-handling layer. There is no package-level
// singleton.
type Latch struct {
	Auth     *services.AuthService
	Issuer   services.TokenIssuer
	Sessions *services.SessionManager // nil in ModeBearer
	Encoder  crypto.Encoder
}

func New(config Config) (*Latch, error) {
	if config.Users == nil {
		return nil, ErrUserStorageRequired
	}

	mode := config.Mode
	if mode == "" {
		mode = ModeSession
	}

	scheme := config.Scheme
	if scheme == "" {
		scheme = SchemeBcrypt
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	encoder, err := crypto.NewEncoder(scheme, crypto.Options{
		Key:        config.EncryptionKey,
		BcryptCost: config.BcryptCost,
	})
	if err != nil {
		return nil, err
	}

	var issuer services.TokenIssuer
	var sessions *services.SessionManager

	switch mode {
	case ModeSession:
		if config.Sessions == nil {
			return nil, ErrSessionStorageRequired
		}

		cache := config.CacheAdapter
		if cache == nil && !config.DisableCache {
			cache = core.NewInMemoryCache(core.CacheConfig{
				TTL:     5 * time.Minute,
				MaxSize: 500,
			})
		}

		sessionConfig := config.SessionConfig
		if sessionConfig == nil {
			defaults := services.DefaultSessionConfig()
			sessionConfig = &defaults
		}

		sessions = services.NewSessionManager(*sessionConfig, config.Sessions, cache)
		issuer = services.NewSessionIssuer(sessions)

	case ModeBearer:
		if config.Secret == "" {
			return nil, ErrSecretRequired
		}
		if len(config.Secret) < minSecretLen {
			return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, minSecretLen)
		}
		issuer = services.NewBearerIssuer([]byte(config.Secret), config.BearerTTL)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	return &Latch{
		Auth:     services.NewAuthService(config.Users, encoder, issuer, logger),
		Issuer:   issuer,
		Sessions: sessions,
		Encoder:  encoder,
	}, nil
}
