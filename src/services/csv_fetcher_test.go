package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchCSVDirect(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/exports/report-1.csv", r.URL.Path)
		w.Write([]byte("Action,Total\nDeposit,5\n"))
	}))
	defer server.Close()

	fetcher := NewCSVFetcher("", server.Client())
	text, err := fetcher.FetchCSV(context.Background(), server.URL+"/exports/report-1.csv")
	require.NoError(t, err)
	require.Equal(t, "Action,Total\nDeposit,5\n", text)
}

func TestFetchCSVRewritesOntoProxy(t *testing.T) {
	t.Parallel()
	var gotPath, gotQuery string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer proxy.Close()

	fetcher := NewCSVFetcher(proxy.URL+"/api/csv-proxy", proxy.Client())
	_, err := fetcher.FetchCSV(context.Background(),
		"https://storage.example.com/exports/report-1.csv?X-Amz-Signature=abc")
	require.NoError(t, err)

	// The storage host is replaced by the proxy prefix; path and the
	// pre-signed query survive.
	require.Equal(t, "/api/csv-proxy/exports/report-1.csv", gotPath)
	require.Equal(t, "X-Amz-Signature=abc", gotQuery)
}

func TestFetchCSVNonSuccessStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewCSVFetcher("", server.Client())
	_, err := fetcher.FetchCSV(context.Background(), server.URL+"/exports/expired.csv")

	var fetchErr *ProxyFetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
}
