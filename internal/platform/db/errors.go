package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stocklens/stocklens/internal/shared"
)

// Postgres error codes translated at the repository boundary.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Translate maps store-specific failures onto the engine error taxonomy.
// Everything unrecognized is wrapped as an opaque store error.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.ErrTimeout
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", shared.ErrHasDependents, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrStore, err)
}
