package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/lineage/internal/store"
)

// classify maps driver errors onto the store sentinels while keeping the
// driver error in the chain for diagnostics.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrConstraint:
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				return fmt.Errorf("%w: %w", store.ErrConflict, err)
			default:
				return fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
			}
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: database locked: %w", store.ErrUnavailable, err)
		}
	}

	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}
