package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mreyes/latch/core"
)

var bearerSecret = []byte("an-hs256-secret-of-sufficient-length")

func TestBearerIssuer_RoundTrip(t *testing.T) {
	issuer := NewBearerIssuer(bearerSecret, time.Hour)
	principal := core.Principal{ID: "user-1", Name: "alice", Method: core.MethodLocal}

	token, err := issuer.Issue(context.Background(), principal)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	resolved, err := issuer.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved.ID != principal.ID || resolved.Name != principal.Name {
		t.Errorf("Resolve() = %+v, want id %q name %q", resolved, principal.ID, principal.Name)
	}
	// A token-resolved principal reports how it authenticated this time.
	if resolved.Method != core.MethodToken {
		t.Errorf("Resolve() method = %q, want %q", resolved.Method, core.MethodToken)
	}
}

func TestBearerIssuer_Expired(t *testing.T) {
	issuer := NewBearerIssuer(bearerSecret, time.Hour)
	principal := core.Principal{ID: "user-1", Name: "alice", Method: core.MethodLocal}

	token, err := issuer.Issue(context.Background(), principal)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Jump past the embedded expiry.
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = issuer.Resolve(context.Background(), token)
	if !errors.Is(err, core.ErrTokenExpired) {
		t.Errorf("Resolve() error = %v, want ErrTokenExpired", err)
	}
}

func TestBearerIssuer_Tampered(t *testing.T) {
	issuer := NewBearerIssuer(bearerSecret, time.Hour)
	principal := core.Principal{ID: "user-1", Name: "alice", Method: core.MethodLocal}

	token, err := issuer.Issue(context.Background(), principal)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts, want 3", len(parts))
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "altered payload", token: parts[0] + "." + flipFirstByte(parts[1]) + "." + parts[2]},
		{name: "altered signature", token: parts[0] + "." + parts[1] + "." + flipFirstByte(parts[2])},
		{name: "wrong secret", token: mustIssue(t, NewBearerIssuer([]byte("a-completely-different-signing-key!!"), time.Hour), principal)},
		{name: "garbage", token: "not.a.jwt"},
		{name: "empty", token: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := issuer.Resolve(context.Background(), test.token)

			if !errors.Is(err, core.ErrInvalidToken) {
				t.Errorf("Resolve() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerIssuer_RevokeUnsupported(t *testing.T) {
	issuer := NewBearerIssuer(bearerSecret, time.Hour)

	err := issuer.Revoke(context.Background(), "any")
	if !errors.Is(err, core.ErrRevocationUnsupported) {
		t.Errorf("Revoke() error = %v, want ErrRevocationUnsupported", err)
	}
}

func TestSessionIssuer_RoundTrip(t *testing.T) {
	storage := NewFakeSessionStorage()
	issuer := NewSessionIssuer(NewSessionManager(SessionConfig{TTL: time.Hour}, storage, nil))
	principal := core.Principal{ID: "user-1", Name: "alice", Method: core.MethodLocal}

	token, err := issuer.Issue(context.Background(), principal)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	resolved, err := issuer.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if *resolved != principal {
		t.Errorf("Resolve() = %+v, want %+v", *resolved, principal)
	}

	// Session mode supports revocation.
	if err := issuer.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := issuer.Resolve(context.Background(), token); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("Resolve() after Revoke error = %v, want ErrSessionNotFound", err)
	}
}

func flipFirstByte(seg string) string {
	b := seg[0]
	if b == 'A' {
		return "B" + seg[1:]
	}
	return "A" + seg[1:]
}

func mustIssue(t *testing.T, issuer TokenIssuer, principal core.Principal) string {
	t.Helper()
	token, err := issuer.Issue(context.Background(), principal)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}
