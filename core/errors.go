package core

import "errors"

// User errors
var (
	ErrUserExists         = errors.New("user already exists")             // 409 Conflict
	ErrUserNotFound       = errors.New("user not found")                  // 404 Not Found
	ErrDuplicateProvider  = errors.New("provider id already registered")  // 409 Conflict
	ErrInvalidCredentials = errors.New("invalid username or password")    // 401 Unauthorized
)

// Session and token errors
var (
	ErrMissingAuthHeader     = errors.New("missing authorization header") // 401
	ErrInvalidAuthHeader     = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrInvalidToken          = errors.New("invalid token")                // 401
	ErrTokenExpired          = errors.New("token expired")                // 401
	ErrSessionNotFound       = errors.New("session not found")            // 401
	ErrSessionExpired        = errors.New("session expired")              // 401
	ErrCacheNotFound         = errors.New("session not found in cache")
	ErrRevocationUnsupported = errors.New("bearer tokens cannot be revoked")
)

// Validation errors (client input)
var (
	ErrUsernameRequired = errors.New("username is required") // 400
	ErrPasswordRequired = errors.New("password is required") // 400
)

// Store errors
var (
	ErrStoreUnavailable = errors.New("store unavailable")         // 500
	ErrStoreTimeout     = errors.New("store operation timed out") // 503
)

// Config errors (server-side configuration)
var (
	ErrUserStorageRequired    = errors.New("user storage is required")
	ErrSessionStorageRequired = errors.New("session storage is required")
	ErrSecretRequired         = errors.New("secret is required")
	ErrSecretTooShort         = errors.New("secret too short")
	ErrUnknownMode            = errors.New("unknown issuer mode")
)
