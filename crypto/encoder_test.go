package crypto

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// testEncoders builds one encoder per scheme with cheap parameters.
func testEncoders(t *testing.T) map[Scheme]Encoder {
	t.Helper()

	encoders := make(map[Scheme]Encoder)
	for _, scheme := range []Scheme{SchemeNone, SchemeAES, SchemeMD5, SchemeBcrypt, SchemeArgon2} {
		enc, err := NewEncoder(scheme, Options{Key: testKey, BcryptCost: 4})
		if err != nil {
			t.Fatalf("NewEncoder(%q) error = %v", scheme, err)
		}
		encoders[scheme] = enc
	}
	return encoders
}

// Requirement: verify(p, encode(p)) is true for every scheme.
func TestEncoder_RoundTrip(t *testing.T) {
	plaintexts := []string{"s3cret!", "p@ssw0rd!#$%", strings.Repeat("a", 64), "pass\x00word"}

	for scheme, enc := range testEncoders(t) {
		t.Run(string(scheme), func(t *testing.T) {
			for _, plaintext := range plaintexts {
				stored, err := enc.Encode(context.Background(), plaintext)
				if err != nil {
					t.Fatalf("Encode(%q) error = %v", plaintext, err)
				}
				if stored.Scheme != scheme {
					t.Errorf("Encode(%q).Scheme = %q, want %q", plaintext, stored.Scheme, scheme)
				}

				ok, err := enc.Verify(context.Background(), plaintext, stored)
				if err != nil {
					t.Fatalf("Verify(%q) error = %v", plaintext, err)
				}
				if !ok {
					t.Errorf("Verify(%q, encode(%q)) = false, want true", plaintext, plaintext)
				}
			}
		})
	}
}

// Requirement: verify(p1, encode(p2)) is false for p1 != p2, with no error.
func TestEncoder_NoFalsePositives(t *testing.T) {
	for scheme, enc := range testEncoders(t) {
		t.Run(string(scheme), func(t *testing.T) {
			stored, err := enc.Encode(context.Background(), "correct horse")
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			for _, wrong := range []string{"battery staple", "correct horsE", "correct horse "} {
				ok, err := enc.Verify(context.Background(), wrong, stored)
				if err != nil {
					t.Fatalf("Verify(%q) error = %v, want nil on mismatch", wrong, err)
				}
				if ok {
					t.Errorf("Verify(%q) = true, want false", wrong)
				}
			}
		})
	}
}

// Requirement: slow salted hashing is non-deterministic across calls, yet
// both outputs verify.
func TestEncoder_SaltedSchemes_NonDeterministic(t *testing.T) {
	encoders := testEncoders(t)

	for _, scheme := range []Scheme{SchemeBcrypt, SchemeArgon2, SchemeAES} {
		t.Run(string(scheme), func(t *testing.T) {
			enc := encoders[scheme]

			first, err := enc.Encode(context.Background(), "samePassword")
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			second, err := enc.Encode(context.Background(), "samePassword")
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			if first.Value == second.Value {
				t.Error("Encode() produced identical stored values for identical input")
			}

			for _, stored := range []StoredCredential{first, second} {
				ok, err := enc.Verify(context.Background(), "samePassword", stored)
				if err != nil || !ok {
					t.Errorf("Verify() = (%v, %v), want (true, nil)", ok, err)
				}
			}
		})
	}
}

// Requirement: the fast scheme is deterministic. This is the documented
// weakness, not a bug.
func TestEncoder_MD5_Deterministic(t *testing.T) {
	enc := testEncoders(t)[SchemeMD5]

	first, _ := enc.Encode(context.Background(), "samePassword")
	second, _ := enc.Encode(context.Background(), "samePassword")

	if first.Value != second.Value {
		t.Errorf("md5 digests differ: %q vs %q", first.Value, second.Value)
	}
}

func TestEncoder_EmptyPlaintext(t *testing.T) {
	for scheme, enc := range testEncoders(t) {
		t.Run(string(scheme), func(t *testing.T) {
			_, err := enc.Encode(context.Background(), "")

			if !errors.Is(err, ErrPlaintextRequired) {
				t.Errorf("Encode(\"\") error = %v, want ErrPlaintextRequired", err)
			}
		})
	}
}

// Requirement: a record tagged with a different scheme is corrupt data, not
// a mismatch.
func TestEncoder_SchemeMismatchIsCorrupt(t *testing.T) {
	encoders := testEncoders(t)

	stored, err := encoders[SchemeMD5].Encode(context.Background(), "s3cret!")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = encoders[SchemeBcrypt].Verify(context.Background(), "s3cret!", stored)
	if !errors.Is(err, ErrCorruptCredential) {
		t.Errorf("Verify() error = %v, want ErrCorruptCredential", err)
	}
}

func TestEncoder_CorruptStoredValues(t *testing.T) {
	encoders := testEncoders(t)

	tests := []struct {
		name   string
		scheme Scheme
		stored StoredCredential
	}{
		{name: "empty value", scheme: SchemeNone, stored: StoredCredential{Scheme: SchemeNone}},
		{name: "aes not base64", scheme: SchemeAES, stored: StoredCredential{Scheme: SchemeAES, Value: "!!!"}},
		{name: "aes too short", scheme: SchemeAES, stored: StoredCredential{Scheme: SchemeAES, Value: "YWJj"}},
		{name: "md5 wrong length", scheme: SchemeMD5, stored: StoredCredential{Scheme: SchemeMD5, Value: "abc123"}},
		{name: "bcrypt garbage", scheme: SchemeBcrypt, stored: StoredCredential{Scheme: SchemeBcrypt, Value: "not-a-bcrypt-hash"}},
		{name: "argon2 wrong parts", scheme: SchemeArgon2, stored: StoredCredential{Scheme: SchemeArgon2, Value: "$argon2id$v=19$broken"}},
		{name: "argon2 wrong algorithm", scheme: SchemeArgon2, stored: StoredCredential{Scheme: SchemeArgon2, Value: "$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := encoders[test.scheme].Verify(context.Background(), "whatever", test.stored)

			if !errors.Is(err, ErrCorruptCredential) {
				t.Errorf("Verify() error = %v, want ErrCorruptCredential", err)
			}
		})
	}
}

func TestEncoder_AESTamperedCiphertext(t *testing.T) {
	enc := testEncoders(t)[SchemeAES]

	stored, err := enc.Encode(context.Background(), "s3cret!")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip one character in the middle of the sealed payload.
	tampered := stored
	replacement := byte('A')
	if tampered.Value[5] == 'A' {
		replacement = 'B'
	}
	tampered.Value = tampered.Value[:5] + string(replacement) + tampered.Value[6:]

	_, err = enc.Verify(context.Background(), "s3cret!", tampered)
	if !errors.Is(err, ErrCorruptCredential) {
		t.Errorf("Verify(tampered) error = %v, want ErrCorruptCredential", err)
	}
}

func TestNewEncoder_Config(t *testing.T) {
	tests := []struct {
		name    string
		scheme  Scheme
		opts    Options
		wantErr error
	}{
		{name: "aes without key", scheme: SchemeAES, wantErr: ErrKeyRequired},
		{name: "aes short key", scheme: SchemeAES, opts: Options{Key: []byte("short")}, wantErr: ErrBadKeyLength},
		{name: "unknown scheme", scheme: Scheme("rot13"), wantErr: ErrUnknownScheme},
		{name: "bcrypt default cost", scheme: SchemeBcrypt},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewEncoder(test.scheme, test.opts)

			if test.wantErr == nil {
				if err != nil {
					t.Fatalf("NewEncoder() error = %v", err)
				}
				return
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("NewEncoder() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

// Slow-hash dispatch honors context cancellation while waiting for a slot.
func TestEncoder_SlowHashCancellation(t *testing.T) {
	enc, err := NewEncoder(SchemeBcrypt, Options{BcryptCost: 4, MaxConcurrent: 1})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context may still win the semaphore slot immediately, but
	// once the slot is contended the acquire must fail.
	be := enc.(*bcryptEncoder)
	if err := be.guard.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer be.guard.sem.Release(1)

	_, err = enc.Encode(ctx, "s3cret!")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Encode() error = %v, want context.Canceled", err)
	}
}
