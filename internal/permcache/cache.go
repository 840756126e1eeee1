// Package permcache is the client-side permission cache fronting the
// permission resolution endpoint. It gates UI actions only; the server-side
// pipeline re-validates every request regardless of what this cache holds.
package permcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fixflow-app/fixflow/internal/authz"
)

// DefaultTTL bounds how long a fetched permission set is trusted before
// re-fetch. Policy changes rarely (role edits only), so a short TTL plus
// explicit invalidation keeps round trips low with a small staleness window.
const DefaultTTL = 5 * time.Minute

// KeyPrefix namespaces cache records so bulk invalidation can delete by
// prefix without enumerating unrelated keys in shared storage.
const KeyPrefix = "fixflow:perms:"

// ErrFetchFailed wraps network failures of the permission fetch. There is no
// stale-on-error fallback: FetchPermissions propagates this, CheckPermission
// swallows it to false.
var ErrFetchFailed = errors.New("permcache: fetch failed")

// Store is the key-value storage backing the cache. Implementations must
// treat missing keys as an absent entry, not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Fetcher performs the network call to the permission resolution endpoint.
type Fetcher interface {
	FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error)
}

// Clock supplies the current time so tests can advance it without sleeping.
type Clock func() time.Time

// entry is the serialized storage record, one per user id.
type entry struct {
	Permissions []string `json:"permissions"`
	ExpiresAt   int64    `json:"expires_at"` // epoch millis
}

// Cache is an explicit, constructible permission cache with injected storage
// and clock. Expiry is checked lazily at read time; there is no background
// sweep and no request coalescing for concurrent misses.
type Cache struct {
	store   Store
	fetcher Fetcher
	ttl     time.Duration
	now     Clock
	logger  *slog.Logger
}

// Option customizes cache construction.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a time source.
func WithClock(now Clock) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger for non-fatal storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// NewCache constructs a Cache over the given store and fetcher.
func NewCache(store Store, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPermissions returns the cached permission set for the user when a
// non-expired entry exists, otherwise performs one network fetch and stores
// the result with a fresh TTL. Fetch failures propagate wrapped in
// ErrFetchFailed; a failing storage write does not fail the call.
func (c *Cache) FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	key := c.key(userID)

	if cached, ok := c.readFresh(ctx, key); ok {
		return cached, nil
	}

	perms, err := c.fetcher.FetchPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	record := entry{
		Permissions: authz.Strings(perms),
		ExpiresAt:   c.now().Add(c.ttl).UnixMilli(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, data); err != nil && c.logger != nil {
		c.logger.Warn("permcache store write", slog.Any("error", err))
	}
	return perms, nil
}

// CheckPermission reports whether the user holds the permission. Any failure,
// ErrFetchFailed included, yields false: this call gates UI rendering, where
// silently hiding an action is safer than surfacing an error.
func (c *Cache) CheckPermission(ctx context.Context, userID int64, perm authz.Permission) bool {
	perms, err := c.FetchPermissions(ctx, userID)
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// Invalidate deletes the cache entry for the user. Every code path that can
// change a principal's own permissions (role edit, deactivation, logout) must
// call this before that principal's next read.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, c.key(userID))
}

// InvalidateAll deletes every cache entry under the namespace prefix.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, KeyPrefix)
}

// readFresh returns the decoded entry when present and unexpired. Corrupted
// or expired records count as a miss.
func (c *Cache) readFresh(ctx context.Context, key string) ([]authz.Permission, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("permcache store read", slog.Any("error", err))
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var record entry
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false
	}
	if c.now().UnixMilli() > record.ExpiresAt {
		return nil, false
	}
	perms := make([]authz.Permission, len(record.Permissions))
	for i, p := range record.Permissions {
		perms[i] = authz.Permission(p)
	}
	return perms, true
}

func (c *Cache) key(userID int64) string {
	return KeyPrefix + strconv.FormatInt(userID, 10)
}
