// src/t212/client.go

// Package t212 is a thin client for the Trading 212 public API endpoints
// used by the export pipeline. It carries no retry or backoff policy of its
// own; rate limiting is handled by the export orchestration layer, where
// backoff state is shared across calls.
package t212

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/models"
)

// Client is the interface for talking to the Trading 212 API. All calls are
// authenticated with the caller-supplied API key; the client never stores it.
type Client interface {
	// RequestExport creates a new export job for the given time range and
	// returns its report ID.
	RequestExport(ctx context.Context, apiKey string, req models.ExportRequest) (int64, error)
	// ListExports returns all export jobs known to the account, newest and
	// oldest alike, with their current status.
	ListExports(ctx context.Context, apiKey string) ([]models.ExportDescriptor, error)
	// FetchAccountCash returns the account cash snapshot. Used as a cheap
	// probe that the API key is valid.
	FetchAccountCash(ctx context.Context, apiKey string) (models.AccountCash, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*client)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// ClientWithLogger sets the logger for the client.
func ClientWithLogger(logger *slog.Logger) ClientOption {
	return func(c *client) {
		c.logger = logger
	}
}

// NewClient creates a new API client for the given base URL
// (e.g. https://live.trading212.com/api/v0).
func NewClient(baseURL string, options ...ClientOption) Client {
	c := &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// requestExportResponse is the body returned when an export is accepted.
type requestExportResponse struct {
	ReportID int64 `json:"reportId"`
}

func (c *client) RequestExport(ctx context.Context, apiKey string, exportReq models.ExportRequest) (int64, error) {
	body, err := json.Marshal(exportReq)
	if err != nil {
		return 0, &TransportError{Op: "encoding export request", Err: err}
	}
	respBody, err := c.do(ctx, apiKey, http.MethodPost, "/equity/history/exports", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	var resp requestExportResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, &TransportError{Op: "decoding export response", Err: err}
	}
	c.logger.Info("export job requested",
		"reportId", resp.ReportID,
		"timeFrom", exportReq.TimeFrom.Format(time.RFC3339),
		"timeTo", exportReq.TimeTo.Format(time.RFC3339))
	return resp.ReportID, nil
}

func (c *client) ListExports(ctx context.Context, apiKey string) ([]models.ExportDescriptor, error) {
	respBody, err := c.do(ctx, apiKey, http.MethodGet, "/equity/history/exports", nil)
	if err != nil {
		return nil, err
	}
	var descriptors []models.ExportDescriptor
	if err := json.Unmarshal(respBody, &descriptors); err != nil {
		return nil, &TransportError{Op: "decoding exports listing", Err: err}
	}
	return descriptors, nil
}

func (c *client) FetchAccountCash(ctx context.Context, apiKey string) (models.AccountCash, error) {
	var cash models.AccountCash
	respBody, err := c.do(ctx, apiKey, http.MethodGet, "/equity/account/cash", nil)
	if err != nil {
		return cash, err
	}
	if err := json.Unmarshal(respBody, &cash); err != nil {
		return cash, &TransportError{Op: "decoding account cash", Err: err}
	}
	return cash, nil
}

// do performs one authenticated request and maps failure statuses onto the
// error taxonomy: 429 -> RateLimitError, 401/403 -> AuthError, anything
// else unexpected -> TransportError.
func (c *client) do(ctx context.Context, apiKey, method, path string, body io.Reader) ([]byte, error) {
	op := fmt.Sprintf("%s %s", method, path)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("unexpected API status", "op", op, "status", resp.StatusCode)
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return respBody, nil
}

// parseRetryAfter interprets a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
