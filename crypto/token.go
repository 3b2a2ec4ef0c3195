package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

const tokenBytes = 32 // 256 bits

// SessionToken couples the raw value handed to a client with the hash kept
// in storage. Only the hash ever touches a store, so a leaked session table
// does not leak usable tokens.
type SessionToken struct {
	Raw  string
	Hash string
}

// NewSessionToken generates a fresh unguessable session token.
func NewSessionToken() (SessionToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return SessionToken{}, err
	}

	raw := base64.RawURLEncoding.EncodeToString(buf)
	return SessionToken{Raw: raw, Hash: HashToken(raw)}, nil
}

// HashToken maps a raw token to its storage key.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyTokenHash reports whether raw hashes to storedHash, in constant time.
func VerifyTokenHash(raw, storedHash string) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(raw)), []byte(storedHash)) == 1
}
