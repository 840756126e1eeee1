package permcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fixflow-app/fixflow/internal/authz"
)

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, userID int64) ([]authz.Permission, error)

// FetchPermissions calls f.
func (f FetcherFunc) FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	return f(ctx, userID)
}

// HTTPFetcher resolves permissions against the server's permission
// resolution endpoint. The endpoint is caller-scoped: the session cookie on
// the underlying client identifies the user, so the userID argument only
// keys the cache and is not sent on the wire.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher constructs a fetcher against the given base URL. A nil
// client falls back to http.DefaultClient; cancellation and timeouts are
// whatever that client provides.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{baseURL: baseURL, client: client}
}

type permissionsPayload struct {
	Permissions []string `json:"permissions"`
}

// FetchPermissions performs one GET against /api/me/permissions.
func (f *HTTPFetcher) FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/me/permissions", nil)
	if err != nil {
		return nil, err
	}
	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("permcache: endpoint returned %d", res.StatusCode)
	}
	var payload permissionsPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	perms := make([]authz.Permission, len(payload.Permissions))
	for i, p := range payload.Permissions {
		perms[i] = authz.Permission(p)
	}
	return perms, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
