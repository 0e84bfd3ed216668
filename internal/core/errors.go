package core

import (
	"errors"

	"github.com/coregx/bulkupsert/internal/dialects"
)

// Predefined errors returned while building or executing bulk statements.
// Build errors are raised before any SQL text is produced; use errors.Is
// to classify them.
var (
	// ErrEmptyInput is returned when the batch or the single row is empty.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyRow is returned when the first row has no columns.
	ErrEmptyRow = errors.New("empty row")
	// ErrInvalidShape is returned when the input is not a row or a list of rows.
	ErrInvalidShape = errors.New("input is not a list of rows")
	// ErrMissingPrimaryKey is returned in strict mode when the first row
	// lacks the table's primary key column.
	ErrMissingPrimaryKey = errors.New("primary key column missing from row")
	// ErrColumnMismatch is returned when a row's column set differs from
	// the first row's.
	ErrColumnMismatch = errors.New("row columns differ from first row")
	// ErrTooManyParams is returned when a statement would bind more
	// parameters than the dialect allows.
	ErrTooManyParams = errors.New("too many bind parameters for one statement")
	// ErrUnsafeFragment is returned when an inlined SQL fragment fails validation.
	ErrUnsafeFragment = errors.New("unsafe inlined SQL fragment")
	// ErrUnsupportedDialect is returned when an unsupported database dialect is specified.
	ErrUnsupportedDialect = dialects.ErrUnsupportedDialect
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.err.Error() + ": " + e.msg
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
