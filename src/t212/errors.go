// src/t212/errors.go
package t212

import (
	"fmt"
	"time"
)

// RateLimitError is returned when the API answers 429. RetryAfter carries
// the server's suggested wait when present, zero otherwise.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by API, retry after %s", e.RetryAfter)
	}
	return "rate limited by API"
}

// AuthError is returned on 401/403. It is never retried; a bad API key
// fails the whole operation.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected by API (status %d)", e.StatusCode)
}

// TransportError covers network failures, unexpected statuses and
// malformed responses.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
