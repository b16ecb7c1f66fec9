package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/conduit-lang/routable/internal/orm/query"
)

var (
	// ErrUnknownField is returned when a referenced column does not exist
	ErrUnknownField = query.ErrUnknownField

	// ErrUnknownTable is returned when the resource table does not exist
	ErrUnknownTable = errors.New("unknown table")

	// ErrMaxDepthExceeded is returned when an ancestor chain is longer than
	// the configured max depth
	ErrMaxDepthExceeded = errors.New("ancestor chain exceeds max depth")
)

// ConvertDBError converts database-specific errors to store errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	// PostgreSQL (pgx)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42703": // undefined_column
			return fmt.Errorf("%w: %s", ErrUnknownField, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %s", ErrUnknownTable, pgErr.Message)
		}
		return err
	}

	// SQLite reports these as generic errors with a fixed message prefix
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such column"):
		return fmt.Errorf("%w: %s", ErrUnknownField, msg)
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %s", ErrUnknownTable, msg)
	}

	return err
}

// IsUnknownField returns true if the error is ErrUnknownField
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}

// IsUnknownTable returns true if the error is ErrUnknownTable
func IsUnknownTable(err error) bool {
	return errors.Is(err, ErrUnknownTable)
}
