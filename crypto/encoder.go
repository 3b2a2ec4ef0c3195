package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Encoder turns plaintext secrets into stored credentials and checks login
// attempts against them.
//
// Verify returns false on mismatch; errors are reserved for malformed stored
// data or infrastructure failure. A stored credential whose scheme tag does
// not match the encoder's scheme is reported as ErrCorruptCredential rather
// than silently failing verification.
type Encoder interface {
	Scheme() Scheme
	Encode(ctx context.Context, plaintext string) (StoredCredential, error)
	Verify(ctx context.Context, plaintext string, stored StoredCredential) (bool, error)
}

// Options tunes scheme-specific parameters. Zero values select defaults.
type Options struct {
	// Key is the 32-byte symmetric key for SchemeAES. Required for that
	// scheme, ignored by the others.
	Key []byte
	// BcryptCost is the bcrypt cost factor. Zero selects DefaultBcryptCost.
	BcryptCost int
	// MaxConcurrent bounds in-flight slow-hash computations so that bcrypt
	// and argon2 work never starves concurrent request handling. Zero
	// selects GOMAXPROCS.
	MaxConcurrent int64
}

const DefaultBcryptCost = 10

// NewEncoder constructs the encoder for the given scheme.
func NewEncoder(scheme Scheme, opts Options) (Encoder, error) {
	switch scheme {
	case SchemeNone:
		return plainEncoder{}, nil

	case SchemeAES:
		if len(opts.Key) == 0 {
			return nil, ErrKeyRequired
		}
		if len(opts.Key) != 32 {
			return nil, fmt.Errorf("%w, got %d", ErrBadKeyLength, len(opts.Key))
		}
		block, err := aes.NewCipher(opts.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKeyLength, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return &aesEncoder{aead: aead}, nil

	case SchemeMD5:
		return md5Encoder{}, nil

	case SchemeBcrypt:
		cost := opts.BcryptCost
		if cost == 0 {
			cost = DefaultBcryptCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return &bcryptEncoder{cost: cost, guard: newSlowGuard(opts.MaxConcurrent)}, nil

	case SchemeArgon2:
		return &argon2Encoder{params: defaultArgon2Params(), guard: newSlowGuard(opts.MaxConcurrent)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
}

// slowGuard bounds concurrent slow-hash work. Acquisition honors the
// caller's context, so an abandoned request never occupies a slot.
type slowGuard struct {
	sem *semaphore.Weighted
}

func newSlowGuard(max int64) slowGuard {
	if max <= 0 {
		max = int64(runtime.GOMAXPROCS(0))
	}
	return slowGuard{sem: semaphore.NewWeighted(max)}
}

func (g slowGuard) do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn()
}

func checkScheme(stored StoredCredential, want Scheme) error {
	if stored.Scheme != want {
		return fmt.Errorf("%w: scheme %q, verifier expects %q", ErrCorruptCredential, stored.Scheme, want)
	}
	if stored.Value == "" {
		return fmt.Errorf("%w: empty value", ErrCorruptCredential)
	}
	return nil
}

// ============================================
// SchemeNone
// ============================================

type plainEncoder struct{}

func (plainEncoder) Scheme() Scheme { return SchemeNone }

func (plainEncoder) Encode(_ context.Context, plaintext string) (StoredCredential, error) {
	if plaintext == "" {
		return StoredCredential{}, ErrPlaintextRequired
	}
	return StoredCredential{Scheme: SchemeNone, Value: plaintext}, nil
}

func (plainEncoder) Verify(_ context.Context, plaintext string, stored StoredCredential) (bool, error) {
	if err := checkScheme(stored, SchemeNone); err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(stored.Value)) == 1, nil
}

// ============================================
// SchemeAES (AES-256-GCM, nonce prepended)
// ============================================

type aesEncoder struct {
	aead cipher.AEAD
}

func (*aesEncoder) Scheme() Scheme { return SchemeAES }

func (e *aesEncoder) Encode(_ context.Context, plaintext string) (StoredCredential, error) {
	if plaintext == "" {
		return StoredCredential{}, ErrPlaintextRequired
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return StoredCredential{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return StoredCredential{
		Scheme: SchemeAES,
		Value:  base64.RawStdEncoding.EncodeToString(sealed),
	}, nil
}

func (e *aesEncoder) Verify(_ context.Context, plaintext string, stored StoredCredential) (bool, error) {
	if err := checkScheme(stored, SchemeAES); err != nil {
		return false, err
	}

	sealed, err := base64.RawStdEncoding.DecodeString(stored.Value)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}
	if len(sealed) < e.aead.NonceSize() {
		return false, fmt.Errorf("%w: ciphertext shorter than nonce", ErrCorruptCredential)
	}

	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	decrypted, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Wrong key or tampered ciphertext. Either way the stored value is
		// unusable, which is a data problem, not a mismatch.
		return false, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}

	return subtle.ConstantTimeCompare([]byte(plaintext), decrypted) == 1, nil
}

// ============================================
// SchemeMD5
// ============================================

type md5Encoder struct{}

func (md5Encoder) Scheme() Scheme { return SchemeMD5 }

func (md5Encoder) Encode(_ context.Context, plaintext string) (StoredCredential, error) {
	if plaintext == "" {
		return StoredCredential{}, ErrPlaintextRequired
	}
	sum := md5.Sum([]byte(plaintext))
	return StoredCredential{Scheme: SchemeMD5, Value: hex.EncodeToString(sum[:])}, nil
}

func (md5Encoder) Verify(_ context.Context, plaintext string, stored StoredCredential) (bool, error) {
	if err := checkScheme(stored, SchemeMD5); err != nil {
		return false, err
	}
	if len(stored.Value) != md5.Size*2 {
		return false, fmt.Errorf("%w: digest length %d", ErrCorruptCredential, len(stored.Value))
	}
	sum := md5.Sum([]byte(plaintext))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(stored.Value)) == 1, nil
}

// ============================================
// SchemeBcrypt
// ============================================

type bcryptEncoder struct {
	cost  int
	guard slowGuard
}

func (*bcryptEncoder) Scheme() Scheme { return SchemeBcrypt }

func (e *bcryptEncoder) Encode(ctx context.Context, plaintext string) (StoredCredential, error) {
	if plaintext == "" {
		return StoredCredential{}, ErrPlaintextRequired
	}

	var hash []byte
	err := e.guard.do(ctx, func() error {
		var hashErr error
		hash, hashErr = bcrypt.GenerateFromPassword([]byte(plaintext), e.cost)
		return hashErr
	})
	if err != nil {
		return StoredCredential{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return StoredCredential{Scheme: SchemeBcrypt, Value: string(hash)}, nil
}

func (e *bcryptEncoder) Verify(ctx context.Context, plaintext string, stored StoredCredential) (bool, error) {
	if err := checkScheme(stored, SchemeBcrypt); err != nil {
		return false, err
	}

	var match bool
	err := e.guard.do(ctx, func() error {
		cmpErr := bcrypt.CompareHashAndPassword([]byte(stored.Value), []byte(plaintext))
		switch {
		case cmpErr == nil:
			match = true
			return nil
		case errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword):
			return nil
		default:
			return fmt.Errorf("%w: %v", ErrCorruptCredential, cmpErr)
		}
	})
	if err != nil {
		return false, err
	}
	return match, nil
}

// ============================================
// SchemeArgon2 (argon2id, "$argon2id$v=..$m=..,t=..,p=..$salt$hash")
// ============================================

type argon2Params struct {
	memory      uint32 // KiB
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
func defaultArgon2Params() argon2Params {
	return argon2Params{
		memory:      64 * 1024,
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
	}
}

type argon2Encoder struct {
	params argon2Params
	guard  slowGuard
}

func (*argon2Encoder) Scheme() Scheme { return SchemeArgon2 }

func (e *argon2Encoder) Encode(ctx context.Context, plaintext string) (StoredCredential, error) {
	if plaintext == "" {
		return StoredCredential{}, ErrPlaintextRequired
	}

	salt := make([]byte, e.params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return StoredCredential{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	var hash []byte
	err := e.guard.do(ctx, func() error {
		hash = argon2.IDKey([]byte(plaintext), salt, e.params.iterations, e.params.memory, e.params.parallelism, e.params.keyLength)
		return nil
	})
	if err != nil {
		return StoredCredential{}, err
	}

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		e.params.memory,
		e.params.iterations,
		e.params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	return StoredCredential{Scheme: SchemeArgon2, Value: encoded}, nil
}

func (e *argon2Encoder) Verify(ctx context.Context, plaintext string, stored StoredCredential) (bool, error) {
	if err := checkScheme(stored, SchemeArgon2); err != nil {
		return false, err
	}

	params, salt, hash, err := decodeArgon2(stored.Value)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}

	var match bool
	err = e.guard.do(ctx, func() error {
		computed := argon2.IDKey([]byte(plaintext), salt, params.iterations, params.memory, params.parallelism, params.keyLength)
		match = subtle.ConstantTimeCompare(hash, computed) == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return match, nil
}

func decodeArgon2(encoded string) (argon2Params, []byte, []byte, error) {
	var params argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return params, nil, nil, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, errors.New("unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &p); err != nil {
		return params, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	params.parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	params.keyLength = uint32(len(hash))

	return params, salt, hash, nil
}
