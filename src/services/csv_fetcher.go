// src/services/csv_fetcher.go
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/logger"
)

type csvFetcherImpl struct {
	proxyBaseURL string
	httpClient   *http.Client
}

// NewCSVFetcher creates a fetcher for export CSVs. When proxyBaseURL is
// non-empty, download links are rewritten onto that prefix (keeping the
// original path and query string) so the request goes through the
// same-origin CSV proxy instead of the storage host; when empty the link is
// fetched directly. httpClient may be nil.
func NewCSVFetcher(proxyBaseURL string, httpClient *http.Client) CSVFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &csvFetcherImpl{
		proxyBaseURL: strings.TrimRight(proxyBaseURL, "/"),
		httpClient:   httpClient,
	}
}

func (f *csvFetcherImpl) FetchCSV(ctx context.Context, downloadLink string) (string, error) {
	target := downloadLink
	if f.proxyBaseURL != "" {
		u, err := url.Parse(downloadLink)
		if err != nil {
			return "", fmt.Errorf("invalid download link %q: %w", downloadLink, err)
		}
		target = f.proxyBaseURL + u.Path
		if u.RawQuery != "" {
			target += "?" + u.RawQuery
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("building csv request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.L.Warn("CSV download failed", "status", resp.StatusCode, "target", target)
		return "", &ProxyFetchError{StatusCode: resp.StatusCode, StatusText: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading csv body: %w", err)
	}
	return string(body), nil
}
