package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProgram = errors.New("unknown affiliate program")
	ErrNoSampleData   = errors.New("no sample data")
)

// FetchError reports a feed that could not be retrieved.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError reports feed content that could not be turned into rows.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode feed: " + e.Reason
	}
	return fmt.Sprintf("decode feed: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed numeric field in an otherwise identifiable row.
type ParseError struct {
	Program Program
	Field   string
	Value   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s field %q value %q: %v", e.Program, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a processing error for logs.
func ErrorKind(err error) string {
	var fetchErr *FetchError
	var decodeErr *DecodeError
	var parseErr *ParseError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &parseErr):
		return "data_quality"
	case errors.As(err, &decodeErr):
		return "decoding"
	case errors.As(err, &fetchErr):
		return "connectivity"
	case errors.Is(err, ErrUnknownProgram):
		return "configuration"
	default:
		return "internal"
	}
}
