package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline operations. Callers should compare with
// errors.Is; the web layer maps each one to a distinct status code.
var (
	// ErrMissingFile is returned when no input document was supplied.
	ErrMissingFile = errors.New("no file provided")

	// ErrMissingParameter is returned when a required parameter is absent or empty.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidSpec is returned when the filter spec or column selection
	// cannot be decoded.
	ErrInvalidSpec = errors.New("invalid filter specification")

	// ErrNoMatch means the filter retained zero rows. This is an expected
	// outcome, not a failure of the service.
	ErrNoMatch = errors.New("no data found matching these criteria")

	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid csv")

	// ErrEncode is matched by every *EncodeError.
	ErrEncode = errors.New("csv encode failed")

	// ErrEmptyDocument is wrapped in a *ParseError when the document has no header row.
	ErrEmptyDocument = errors.New("empty file")
)

// ParseError reports malformed delimited text. Line and Column are 1-indexed
// and zero when unknown.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv: line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// EncodeError reports a failure to serialize the result set.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("csv encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// InvalidSpecError names which request field failed to decode.
type InvalidSpecError struct {
	Field string // "filters" or "selectedColumns"
	Err   error
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid filter specification: %s: %v", e.Field, e.Err)
}

func (e *InvalidSpecError) Unwrap() error { return e.Err }

func (e *InvalidSpecError) Is(target error) bool { return target == ErrInvalidSpec }

// missingParameter wraps ErrMissingParameter with the parameter name.
func missingParameter(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}
