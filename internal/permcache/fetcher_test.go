package permcache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/permcache"
)

func TestHTTPFetcherDecodesPermissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/me/permissions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"permissions":["tickets.view","tickets.edit"]}`))
	}))
	defer srv.Close()

	fetcher := permcache.NewHTTPFetcher(srv.URL, srv.Client())
	perms, err := fetcher.FetchPermissions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermTicketsView, authz.PermTicketsEdit}, perms)
}

func TestHTTPFetcherNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	fetcher := permcache.NewHTTPFetcher(srv.URL, srv.Client())
	_, err := fetcher.FetchPermissions(context.Background(), 7)
	require.Error(t, err)
}
