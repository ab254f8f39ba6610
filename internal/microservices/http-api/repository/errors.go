package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

// translate maps driver errors onto the package sentinels so callers never
// have to know about gorm or pgconn.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// IsDuplicate reports whether err came from a unique constraint.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
