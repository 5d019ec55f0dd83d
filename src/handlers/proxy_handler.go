// src/handlers/proxy_handler.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

var (
	errNoDocumentPath      = errors.New("no document path supplied")
	errForeignDocumentHost = errors.New("document host not allowed")
)

// ProxyHandler forwards browser requests to the Trading 212 API and to the
// export CSV storage host, so the frontend never talks to either origin
// directly.
type ProxyHandler struct {
	apiBaseURL     string
	csvStorageHost string
	httpClient     *http.Client
}

func NewProxyHandler(apiBaseURL, csvStorageHost string, httpClient *http.Client) *ProxyHandler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProxyHandler{
		apiBaseURL:     strings.TrimRight(apiBaseURL, "/"),
		csvStorageHost: csvStorageHost,
		httpClient:     httpClient,
	}
}

// HandleAPIProxy relays a request to the Trading 212 API, preserving the
// subpath, query string, method and Authorization header.
func (h *ProxyHandler) HandleAPIProxy(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	subPath := strings.TrimPrefix(r.URL.Path, "/api/proxy")
	target := h.apiBaseURL + subPath
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		ctxLogger.Error("HandleAPIProxy: building upstream request failed", "error", err)
		utils.SendJSONError(w, "Invalid proxy target", http.StatusBadRequest)
		return
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		upstreamReq.Header.Set("Authorization", auth)
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		upstreamReq.Header.Set("Content-Type", contentType)
	}

	resp, err := h.httpClient.Do(upstreamReq)
	if err != nil {
		ctxLogger.Error("HandleAPIProxy: upstream request failed", "target", subPath, "error", err)
		utils.SendJSONError(w, "Upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyUpstreamResponse(w, resp)
}

// HandleCSVProxy fetches an export CSV from the storage host on behalf of the
// browser. The document location is taken from the first of: the path after
// the proxy prefix, a "path" query parameter, or the Referer header.
func (h *ProxyHandler) HandleCSVProxy(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	target, err := h.resolveCSVTarget(r)
	if err != nil {
		ctxLogger.Warn("HandleCSVProxy: could not resolve document location", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		utils.SendJSONError(w, "Invalid document location", http.StatusBadRequest)
		return
	}

	resp, err := h.httpClient.Do(upstreamReq)
	if err != nil {
		ctxLogger.Error("HandleCSVProxy: fetch failed", "error", err)
		utils.SendJSONError(w, "Document fetch failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ctxLogger.Warn("HandleCSVProxy: storage host returned an error", "status", resp.StatusCode)
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, resp.Body)
}

// resolveCSVTarget turns whichever hint the browser supplied into an absolute
// URL on the CSV storage host. Path segments may arrive already
// percent-encoded; they are passed through as-is.
func (h *ProxyHandler) resolveCSVTarget(r *http.Request) (string, error) {
	docPath := strings.TrimPrefix(r.URL.Path, "/api/csv-proxy")
	docPath = strings.TrimPrefix(docPath, "/")

	if docPath == "" {
		docPath = r.URL.Query().Get("path")
	}
	if docPath == "" {
		if referer := r.Header.Get("Referer"); referer != "" {
			if parsed, err := url.Parse(referer); err == nil {
				docPath = parsed.Query().Get("path")
			}
		}
	}
	if docPath == "" {
		return "", errNoDocumentPath
	}

	if strings.HasPrefix(docPath, "http://") || strings.HasPrefix(docPath, "https://") {
		parsed, err := url.Parse(docPath)
		if err != nil || parsed.Host != h.csvStorageHost {
			return "", errForeignDocumentHost
		}
		return docPath, nil
	}

	target := "https://" + h.csvStorageHost + "/" + docPath
	if r.URL.RawQuery != "" && r.URL.Query().Get("path") == "" {
		target += "?" + r.URL.RawQuery
	}
	return target, nil
}

func copyUpstreamResponse(w http.ResponseWriter, resp *http.Response) {
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
