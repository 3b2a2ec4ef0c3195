package latch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mreyes/latch/adapters/memstore"
	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
)

func TestNew_Validation(t *testing.T) {
	store := memstore.New()

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "missing user storage",
			config:  Config{Sessions: store},
			wantErr: ErrUserStorageRequired,
		},
		{
			name:    "session mode without session storage",
			config:  Config{Users: store},
			wantErr: ErrSessionStorageRequired,
		},
		{
			name:    "bearer mode without secret",
			config:  Config{Users: store, Mode: ModeBearer},
			wantErr: ErrSecretRequired,
		},
		{
			name:    "bearer mode secret too short",
			config:  Config{Users: store, Mode: ModeBearer, Secret: "short"},
			wantErr: ErrSecretTooShort,
		},
		{
			name:    "unknown mode",
			config:  Config{Users: store, Sessions: store, Mode: Mode("cookie")},
			wantErr: ErrUnknownMode,
		},
		{
			name:    "unknown scheme",
			config:  Config{Users: store, Sessions: store, Scheme: Scheme("rot13")},
			wantErr: crypto.ErrUnknownScheme,
		},
		{
			name:    "aes scheme without key",
			config:  Config{Users: store, Sessions: store, Scheme: SchemeAES},
			wantErr: crypto.ErrKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	store := memstore.New()

	auth, err := New(Config{Users: store, Sessions: store, BcryptCost: 4})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if auth.Encoder.Scheme() != SchemeBcrypt {
		t.Errorf("default scheme = %q, want %q", auth.Encoder.Scheme(), SchemeBcrypt)
	}
	if auth.Sessions == nil {
		t.Error("default mode should build a session manager")
	}
}

// TestSessionModeFlow walks the full local-credential lifecycle against the
// in-memory adapter: register, login, profile, logout.
func TestSessionModeFlow(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	auth, err := New(Config{Users: store, Sessions: store, BcryptCost: 4})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Register
	reg, err := auth.Auth.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Token == "" {
		t.Fatal("Register() returned no token")
	}
	if reg.User.Credential.Value == "s3cret!" {
		t.Error("stored credential must not equal the plaintext")
	}
	if reg.User.Credential.Scheme != SchemeBcrypt {
		t.Errorf("credential scheme = %q, want %q", reg.User.Credential.Scheme, SchemeBcrypt)
	}

	// Login
	result, err := auth.Auth.Login(ctx, LoginRequest{Username: "alice", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !result.Granted() {
		t.Fatalf("Login() outcome = %q, want granted", result.Outcome)
	}
	if result.Principal.Method != core.MethodLocal {
		t.Errorf("principal method = %q, want %q", result.Principal.Method, core.MethodLocal)
	}

	// Wrong password is a denial, not an error
	denied, err := auth.Auth.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	if err != nil {
		t.Fatalf("Login() with wrong password error = %v", err)
	}
	if denied.Granted() {
		t.Error("Login() with wrong password must be denied")
	}

	// Profile via the issued token
	user, err := auth.Auth.Profile(ctx, result.Token)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Profile() username = %q, want alice", user.Username)
	}

	// Logout invalidates the token
	if err := auth.Auth.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := auth.Auth.Profile(ctx, result.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Profile() after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestBearerModeFlow(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	auth, err := New(Config{
		Users:      store,
		Mode:       ModeBearer,
		Secret:     "0123456789abcdef0123456789abcdef",
		BcryptCost: 4,
		BearerTTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if auth.Sessions != nil {
		t.Error("bearer mode must not build a session manager")
	}

	reg, err := auth.Auth.Register(ctx, RegisterRequest{Username: "alice", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	principal, err := auth.Issuer.Resolve(ctx, reg.Token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if principal.Name != "alice" {
		t.Errorf("principal name = %q, want alice", principal.Name)
	}

	// Bearer tokens are self-contained and cannot be revoked
	if err := auth.Issuer.Revoke(ctx, reg.Token); !errors.Is(err, ErrRevocationUnsupported) {
		t.Errorf("Revoke() error = %v, want ErrRevocationUnsupported", err)
	}
}
