package domain

import "errors"

var (
	// ErrParse marks a malformed payload. Match with errors.Is.
	ErrParse = errors.New("parse error")

	// ErrNotFound is returned by fetchers when the requested document does
	// not exist upstream. For the backfill walk it means "no older data".
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned by fetchers for transport failures and any
	// non-success status other than not-found.
	ErrUnavailable = errors.New("unavailable")
)

// ParseError describes why a payload was rejected at the ingestion boundary.
type ParseError struct {
	Source string // what was being parsed, e.g. "daily slice"
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Source + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

func newParseError(source, reason string, err error) *ParseError {
	return &ParseError{Source: source, Reason: reason, Err: err}
}
