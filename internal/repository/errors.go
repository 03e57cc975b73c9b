package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinels for constraint violations surfaced by writes.
var (
	ErrDuplicate       = errors.New("duplicate key")
	ErrMissingParent   = errors.New("referenced row does not exist")
	ErrStillReferenced = errors.New("row is still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	// Raised when a non-UUID string is compared against a UUID column.
	pqInvalidTextRepresentation = "22P02"
)

func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation
}

// translateReadError reports a lookup by a malformed id as a missing row,
// since such an id can never match a UUID primary key.
func translateReadError(err error) error {
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	return err
}

// translateWriteError maps Postgres constraint violations to package sentinels.
// Deleting a referenced row and inserting an orphan both raise 23503.
func translateWriteError(op string, err error, deleting bool) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case pqForeignKeyViolation:
			if deleting {
				return fmt.Errorf("%s: %w", op, ErrStillReferenced)
			}
			return fmt.Errorf("%s: %w", op, ErrMissingParent)
		case pqInvalidTextRepresentation:
			return fmt.Errorf("%s: %w", op, ErrMissingParent)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
