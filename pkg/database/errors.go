package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUniqueViolation means an insert or update collided with a unique constraint.
	ErrUniqueViolation = errors.New("database: unique constraint violation")
	// ErrForeignKeyViolation means a referenced row does not exist.
	ErrForeignKeyViolation = errors.New("database: foreign key violation")
	// ErrCheckViolation means a value failed a CHECK constraint.
	ErrCheckViolation = errors.New("database: check constraint violation")
)

// MapError translates PostgreSQL errors into the sentinels above. The original
// error stays in the chain. Non-PostgreSQL errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s: %w", ErrUniqueViolation, pgErr.ConstraintName, err)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s: %w", ErrForeignKeyViolation, pgErr.ConstraintName, err)
	case pgerrcode.CheckViolation:
		return fmt.Errorf("%w: %s: %w", ErrCheckViolation, pgErr.ConstraintName, err)
	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	case pgerrcode.AdminShutdown, pgerrcode.CrashShutdown, pgerrcode.CannotConnectNow:
		return fmt.Errorf("database server unavailable: %w", err)
	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}
