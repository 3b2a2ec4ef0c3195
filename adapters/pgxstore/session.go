package pgxstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mreyes/latch/core"
)

func (a *Adapter) CreateSession(ctx context.Context, session *core.Session) error {
	principal, err := json.Marshal(session.Principal)
	if err != nil {
		return fmt.Errorf("failed to serialize principal: %w", err)
	}

	query := `
		INSERT INTO latch_sessions (id, token_hash, principal, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = a.pool.Exec(ctx, query,
		session.ID, session.TokenHash, principal, session.Principal.ID, session.ExpiresAt, session.CreatedAt)
	return mapErr(err)
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	query := `SELECT id, token_hash, principal, expires_at, created_at FROM latch_sessions WHERE token_hash = $1`

	session := &core.Session{}
	var principal []byte
	err := a.pool.QueryRow(ctx, query, tokenHash).
		Scan(&session.ID, &session.TokenHash, &principal, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, mapErr(err)
	}

	if err := json.Unmarshal(principal, &session.Principal); err != nil {
		return nil, fmt.Errorf("session %s: failed to deserialize principal: %w", session.ID, err)
	}

	return session, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM latch_sessions WHERE token_hash = $1`, tokenHash)
	return mapErr(err)
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM latch_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM latch_sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
