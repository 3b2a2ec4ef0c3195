package core

import (
	"time"

	"github.com/mreyes/latch/crypto"
)

// AuthMethod records how a principal proved its identity.
type AuthMethod string

const (
	MethodLocal     AuthMethod = "local"
	MethodFederated AuthMethod = "federated"
	MethodToken     AuthMethod = "token"
)

// User represents one registered principal.
//
// The stored credential carries its own scheme tag, so records encoded under
// different schemes can coexist after a migration without breaking
// verification. ProviderID is set only for federated identities, which are
// registered implicitly on first callback and carry no local credential.
type User struct {
	ID         string                  `json:"id"`
	Username   string                  `json:"username"`
	Email      string                  `json:"email,omitempty"`
	Credential crypto.StoredCredential `json:"-"` // Never expose in JSON
	ProviderID string                  `json:"-"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// Principal is the transient authenticated identity produced after a
// successful verification. It is never persisted as its own entity: it is
// either serialized into a server-side session or encoded into a signed
// bearer token.
type Principal struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Method AuthMethod `json:"method"`
}

// Session maps an opaque session token to a serialized principal plus
// expiry. The raw token is never stored; lookups key on its hash.
type Session struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"` // Never expose in JSON
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the normalized identity assertion yielded by a federated
// provider callback: an opaque provider-scoped id plus a display name. The
// redirect dance that produces it is a collaborator concern.
type Profile struct {
	ProviderID  string
	DisplayName string
}

// RegisterRequest carries a local registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries a local login attempt.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Outcome distinguishes a granted authentication from a denied one.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
)

// AuthResult is the value a login attempt resolves to. A denied outcome is a
// normal result, never an error: errors are reserved for infrastructure and
// data failures. Token is the session token or signed bearer token, set only
// when the outcome is granted.
type AuthResult struct {
	Outcome   Outcome    `json:"outcome"`
	Principal *Principal `json:"principal,omitempty"`
	Token     string     `json:"token,omitempty"`
}

// Granted reports whether the attempt authenticated successfully.
func (r AuthResult) Granted() bool { return r.Outcome == OutcomeGranted }

// RegisterResult contains the newly created user and their first token.
type RegisterResult struct {
	User      *User     `json:"user"`
	Principal Principal `json:"principal"`
	Token     string    `json:"token"`
}
