package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyInvalid is wrapped when more rows were dropped than allowed.
	ErrTooManyInvalid = errors.New("too many invalid rows")
	// ErrNoValidQuestions is wrapped when every row was dropped.
	ErrNoValidQuestions = errors.New("no valid questions")
)

// FormatError reports input that is not a supported tabular format.
type FormatError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError reports input that parsed but did not yield a usable
// question set.
type ValidationError struct {
	Reason  string
	Invalid int
	Valid   int
	Kind    error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Kind }

func newFormatError(filename, reason string, err error) *FormatError {
	return &FormatError{Filename: filename, Reason: reason, Err: err}
}
