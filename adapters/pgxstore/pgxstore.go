// Package pgxstore implements the latch storage ports on PostgreSQL via
// pgxpool. Schema is managed with the embedded goose migrations; run
// Migrate once at startup.
package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mreyes/latch/core"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.AuthStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

const uniqueViolation = "23505"

// mapErr translates driver failures into the store error taxonomy. Unique
// violations are handled at the call sites, where the violated constraint
// decides which sentinel applies.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", core.ErrStoreTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
