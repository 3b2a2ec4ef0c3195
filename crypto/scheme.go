package crypto

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme identifies how a plaintext secret was turned into its stored form.
type Scheme string

const (
	// SchemeNone stores the plaintext unchanged. For demonstration
	// deployments only.
	SchemeNone Scheme = "none"
	// SchemeAES stores the secret reversibly encrypted with a deployment key.
	SchemeAES Scheme = "aes"
	// SchemeMD5 stores an unsalted fast digest. Deterministic: identical
	// secrets produce identical stored values.
	SchemeMD5 Scheme = "md5"
	// SchemeBcrypt stores a salted slow hash. The default.
	SchemeBcrypt Scheme = "bcrypt"
	// SchemeArgon2 stores a salted slow hash using argon2id.
	SchemeArgon2 Scheme = "argon2id"
)

var (
	ErrUnknownScheme     = errors.New("unknown credential scheme")
	ErrPlaintextRequired = errors.New("plaintext must not be empty")
	ErrCorruptCredential = errors.New("stored credential is malformed")
)

// Config errors (deployment-side)
var (
	ErrKeyRequired  = errors.New("encryption key is required")
	ErrBadKeyLength = errors.New("encryption key must be 32 bytes")
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeNone, SchemeAES, SchemeMD5, SchemeBcrypt, SchemeArgon2:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
}

// StoredCredential is the scheme-tagged stored representation of a secret.
// The tag travels with every record so a verifier never has to guess which
// scheme produced the value it is checking, even after a scheme migration.
type StoredCredential struct {
	Scheme Scheme `json:"scheme"`
	Value  string `json:"value"`
}

// String renders the canonical storage encoding "scheme$value".
func (c StoredCredential) String() string {
	return string(c.Scheme) + "$" + c.Value
}

// ParseStoredCredential parses the canonical "scheme$value" encoding.
func ParseStoredCredential(s string) (StoredCredential, error) {
	tag, value, ok := strings.Cut(s, "$")
	if !ok {
		return StoredCredential{}, fmt.Errorf("%w: missing scheme tag", ErrCorruptCredential)
	}

	scheme, err := ParseScheme(tag)
	if err != nil {
		return StoredCredential{}, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}
	if value == "" {
		return StoredCredential{}, fmt.Errorf("%w: empty value", ErrCorruptCredential)
	}

	return StoredCredential{Scheme: scheme, Value: value}, nil
}
