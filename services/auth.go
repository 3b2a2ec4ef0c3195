package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
)

// AuthService implements the credential lifecycle: registration encodes a
// plaintext secret into its stored form, login verifies an attempt against
// the stored record, and a verified identity is handed to the issuer to
// become a session or bearer token.
type AuthService struct {
	users   core.UserStorage
	encoder crypto.Encoder
	issuer  TokenIssuer
	logger  zerolog.Logger
}

func NewAuthService(users core.UserStorage, encoder crypto.Encoder, issuer TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		encoder: encoder,
		issuer:  issuer,
		logger:  logger,
	}
}

// Register creates a local user with an encoded credential and issues their
// first token.
func (s *AuthService) Register(ctx context.Context, input core.RegisterRequest) (*core.RegisterResult, error) {
	if input.Username == "" {
		return nil, core.ErrUsernameRequired
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	// Step 1: Check if user already exists
	existing, err := s.users.GetUserByUsername(ctx, input.Username)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, core.ErrUserExists
	}

	// Step 2: Encode the password
	credential, err := s.encoder.Encode(ctx, input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}

	// Step 3: Create the user. The store's uniqueness constraint closes the
	// race between the existence check and the insert.
	user := &core.User{
		Username:   input.Username,
		Email:      input.Email,
		Credential: credential,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return nil, core.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Step 4: Issue the first token
	principal := localPrincipal(user)
	token, err := s.issuer.Issue(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("scheme", string(credential.Scheme)).Msg("user registered")

	return &core.RegisterResult{User: user, Principal: principal, Token: token}, nil
}

// Login verifies a local credential attempt. An unknown username or a
// non-matching password both resolve to a denied AuthResult with a nil
// error; errors mean the attempt could not be evaluated at all.
func (s *AuthService) Login(ctx context.Context, input core.LoginRequest) (core.AuthResult, error) {
	denied := core.AuthResult{Outcome: core.OutcomeDenied}

	if input.Username == "" {
		return denied, core.ErrUsernameRequired
	}
	if input.Password == "" {
		return denied, core.ErrPasswordRequired
	}

	// Step 1: Find the user by username
	user, err := s.users.GetUserByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			// Indistinguishable from a bad password on purpose.
			return denied, nil
		}
		return denied, fmt.Errorf("failed to find user: %w", err)
	}

	// Step 2: Verify against the record's own scheme tag
	match, err := s.encoder.Verify(ctx, input.Password, user.Credential)
	if err != nil {
		if errors.Is(err, crypto.ErrCorruptCredential) {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("stored credential unreadable")
		}
		return denied, fmt.Errorf("failed to verify credential: %w", err)
	}
	if !match {
		return denied, nil
	}

	// Step 3: Issue
	principal := localPrincipal(user)
	token, err := s.issuer.Issue(ctx, principal)
	if err != nil {
		return denied, fmt.Errorf("failed to issue token: %w", err)
	}

	return core.AuthResult{
		Outcome:   core.OutcomeGranted,
		Principal: &principal,
		Token:     token,
	}, nil
}

// FederatedLogin looks up or creates the local user for a provider profile
// and issues a token. First-seen registration is implicit; repeated
// callbacks with the same provider id resolve to the same user. The
// create-after-miss race loses to the store's uniqueness constraint and is
// resolved by re-reading.
func (s *AuthService) FederatedLogin(ctx context.Context, profile core.Profile) (core.AuthResult, error) {
	denied := core.AuthResult{Outcome: core.OutcomeDenied}

	if profile.ProviderID == "" {
		return denied, core.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByProviderID(ctx, profile.ProviderID)
	switch {
	case err == nil:
		// existing federated identity

	case errors.Is(err, core.ErrUserNotFound):
		user = &core.User{
			Username:   profile.DisplayName,
			ProviderID: profile.ProviderID,
		}
		if createErr := s.users.CreateUser(ctx, user); createErr != nil {
			if errors.Is(createErr, core.ErrDuplicateProvider) {
				// Lost the race to a concurrent callback; the record exists now.
				user, err = s.users.GetUserByProviderID(ctx, profile.ProviderID)
				if err != nil {
					return denied, fmt.Errorf("failed to load user after duplicate create: %w", err)
				}
			} else {
				return denied, fmt.Errorf("failed to create federated user: %w", createErr)
			}
		} else {
			s.logger.Info().Str("user_id", user.ID).Msg("federated user registered")
		}

	default:
		return denied, fmt.Errorf("failed to look up provider id: %w", err)
	}

	principal := federatedPrincipal(user)
	token, err := s.issuer.Issue(ctx, principal)
	if err != nil {
		return denied, fmt.Errorf("failed to issue token: %w", err)
	}

	return core.AuthResult{
		Outcome:   core.OutcomeGranted,
		Principal: &principal,
		Token:     token,
	}, nil
}

// ResolveToken maps a previously issued token back to its principal.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*core.Principal, error) {
	return s.issuer.Resolve(ctx, token)
}

// Logout revokes the token. In bearer mode this reports
// ErrRevocationUnsupported.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.issuer.Revoke(ctx, token)
}

// Profile resolves the token and loads the full user record behind it.
// Bearer-resolved principals still hit the user store here, since the
// profile surface returns more than the claims carry.
func (s *AuthService) Profile(ctx context.Context, token string) (*core.User, error) {
	principal, err := s.issuer.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
