package openlibrary

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by a TransportError for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID rejects work ids that are not of the form OL123W.
	ErrInvalidID = errors.New("invalid work id")
)

// TransportError means the request did not complete or returned a non-2xx status.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the body could not be decoded into the expected shape.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
