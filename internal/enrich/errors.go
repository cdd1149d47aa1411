package enrich

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any network call when no API key is configured.
var ErrMissingCredential = errors.New("OPENAI_API_KEY not set")

// TransportError covers an unreachable endpoint or a non-2xx response.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("enrichment service returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("enrichment service unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the reply was not a flat JSON object.
type ParseError struct {
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse enrichment reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError means a required field was missing or empty in the reply.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("enrichment did not return a valid %s", e.Field)
}
