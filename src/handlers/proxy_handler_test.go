package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleAPIProxyForwardsRequest(t *testing.T) {
	t.Parallel()
	var gotPath, gotQuery, gotAuth, gotMethod string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"free": 10}`))
	}))
	defer upstream.Close()

	handler := NewProxyHandler(upstream.URL, "storage.example.com", upstream.Client())

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/equity/account/cash?cursor=5", nil)
	req.Header.Set("Authorization", "api-key")
	recorder := httptest.NewRecorder()
	handler.HandleAPIProxy(recorder, req)

	require.Equal(t, http.MethodGet, gotMethod)
	require.Equal(t, "/equity/account/cash", gotPath)
	require.Equal(t, "cursor=5", gotQuery)
	require.Equal(t, "api-key", gotAuth)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	require.JSONEq(t, `{"free": 10}`, recorder.Body.String())
}

func TestHandleAPIProxyRelaysUpstreamStatus(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	handler := NewProxyHandler(upstream.URL, "storage.example.com", upstream.Client())

	recorder := httptest.NewRecorder()
	handler.HandleAPIProxy(recorder, httptest.NewRequest(http.MethodPost, "/api/proxy/equity/history/exports", strings.NewReader("{}")))

	// 429 and Retry-After travel back to the browser untouched.
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "30", recorder.Header().Get("Retry-After"))
}

func TestHandleCSVProxyFullURL(t *testing.T) {
	t.Parallel()
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/exports/report-1.csv", r.URL.Path)
		w.Write([]byte("Action,Total\nDeposit,5\n"))
	}))
	defer storage.Close()
	storageHost := strings.TrimPrefix(storage.URL, "http://")

	handler := NewProxyHandler("https://api.example.com", storageHost, storage.Client())

	req := httptest.NewRequest(http.MethodGet,
		"/api/csv-proxy?path="+url.QueryEscape(storage.URL+"/exports/report-1.csv"), nil)
	recorder := httptest.NewRecorder()
	handler.HandleCSVProxy(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/csv; charset=utf-8", recorder.Header().Get("Content-Type"))
	require.Equal(t, "Action,Total\nDeposit,5\n", recorder.Body.String())
}

func TestHandleCSVProxyRefererFallback(t *testing.T) {
	t.Parallel()
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("csv"))
	}))
	defer storage.Close()
	storageHost := strings.TrimPrefix(storage.URL, "http://")

	handler := NewProxyHandler("https://api.example.com", storageHost, storage.Client())

	// No path in the request itself; the document location rides in on the
	// Referer of the page that initiated the download.
	req := httptest.NewRequest(http.MethodGet, "/api/csv-proxy", nil)
	req.Header.Set("Referer", "http://localhost:3000/exports?path="+url.QueryEscape(storage.URL+"/exports/r.csv"))
	recorder := httptest.NewRecorder()
	handler.HandleCSVProxy(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "csv", recorder.Body.String())
}

func TestHandleCSVProxyNoPath(t *testing.T) {
	t.Parallel()
	handler := NewProxyHandler("https://api.example.com", "storage.example.com", http.DefaultClient)

	recorder := httptest.NewRecorder()
	handler.HandleCSVProxy(recorder, httptest.NewRequest(http.MethodGet, "/api/csv-proxy", nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleCSVProxyRejectsForeignHost(t *testing.T) {
	t.Parallel()
	handler := NewProxyHandler("https://api.example.com", "storage.example.com", http.DefaultClient)

	req := httptest.NewRequest(http.MethodGet,
		"/api/csv-proxy?path="+url.QueryEscape("https://evil.example.com/steal.csv"), nil)
	recorder := httptest.NewRecorder()
	handler.HandleCSVProxy(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleCSVProxyRelaysStorageError(t *testing.T) {
	t.Parallel()
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer storage.Close()
	storageHost := strings.TrimPrefix(storage.URL, "http://")

	handler := NewProxyHandler("https://api.example.com", storageHost, storage.Client())

	req := httptest.NewRequest(http.MethodGet,
		"/api/csv-proxy?path="+url.QueryEscape(storage.URL+"/exports/old.csv"), nil)
	recorder := httptest.NewRecorder()
	handler.HandleCSVProxy(recorder, req)
	require.Equal(t, http.StatusForbidden, recorder.Code)
}
