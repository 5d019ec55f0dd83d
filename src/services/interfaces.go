// src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"fmt"
)

// Define common service errors
var (
	// ErrRunInProgress is returned when an export run is requested while a
	// previous run for the same API key has not finished. Backoff state is
	// run-scoped, so overlapping runs for one account are refused instead
	// of interleaved.
	ErrRunInProgress = errors.New("an export run is already in progress for this account")
)

// ProxyFetchError is a failed CSV download, carrying the upstream status.
type ProxyFetchError struct {
	StatusCode int
	StatusText string
}

func (e *ProxyFetchError) Error() string {
	return fmt.Sprintf("csv fetch failed: %s", e.StatusText)
}

// CSVFetcher downloads a single export CSV. It is a single-attempt
// transport primitive; retrying is the caller's concern.
type CSVFetcher interface {
	FetchCSV(ctx context.Context, downloadLink string) (string, error)
}
