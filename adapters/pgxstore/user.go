package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
)

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	query := `
		INSERT INTO latch_users (username, email, credential, provider_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	credential := ""
	if user.Credential.Scheme != "" {
		credential = user.Credential.String()
	}

	var providerID *string
	if user.ProviderID != "" {
		providerID = &user.ProviderID
	}

	err := a.pool.QueryRow(ctx, query, user.Username, nullable(user.Email), credential, providerID).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "provider") {
				return core.ErrDuplicateProvider
			}
			return core.ErrUserExists
		}
		return mapErr(err)
	}

	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return a.getUser(ctx, `WHERE id = $1`, id)
}

func (a *Adapter) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return a.getUser(ctx, `WHERE username = $1`, username)
}

func (a *Adapter) GetUserByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	return a.getUser(ctx, `WHERE provider_id = $1`, providerID)
}

func (a *Adapter) getUser(ctx context.Context, where string, arg any) (*core.User, error) {
	query := `SELECT id, username, email, credential, provider_id, created_at FROM latch_users ` + where

	user := &core.User{}
	var email, credential, providerID *string
	err := a.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &email, &credential, &providerID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, mapErr(err)
	}

	if email != nil {
		user.Email = *email
	}
	if providerID != nil {
		user.ProviderID = *providerID
	}
	if credential != nil && *credential != "" {
		parsed, err := crypto.ParseStoredCredential(*credential)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", user.ID, err)
		}
		user.Credential = parsed
	}

	return user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
