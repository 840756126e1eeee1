package permcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/permcache"
	_ "github.com/fixflow-app/fixflow/testing"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int64
	perms map[int64][]authz.Permission
	err   error
}

func (f *countingFetcher) FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[userID], nil
}

func (f *countingFetcher) count() int64 {
	return atomic.LoadInt64(&f.calls)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(fetcher permcache.Fetcher, clock *fakeClock) *permcache.Cache {
	return permcache.NewCache(
		permcache.NewMemoryStore(),
		fetcher,
		permcache.WithClock(clock.Now),
	)
}

func TestFetchPermissionsCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView, authz.PermTicketsEdit},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	first, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermTicketsView, authz.PermTicketsEdit}, first)
	assert.EqualValues(t, 1, fetcher.count())

	clock.Advance(permcache.DefaultTTL - time.Second)
	second, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, fetcher.count(), "unexpired entry must not refetch")
}

func TestFetchPermissionsRefetchesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	_, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)

	clock.Advance(permcache.DefaultTTL + time.Second)
	_, err = cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetcher.count(), "expired entry must refetch exactly once")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	_, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, 7))

	_, err = cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetcher.count())
}

func TestInvalidateAllClearsEveryUser(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView},
		8: {authz.PermTicketsView},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	_, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	_, err = cache.FetchPermissions(ctx, 8)
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateAll(ctx))

	_, err = cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	_, err = cache.FetchPermissions(ctx, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 4, fetcher.count())
}

func TestFetchPermissionsWrapsFetchFailure(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("connection refused")}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	_, err := cache.FetchPermissions(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, permcache.ErrFetchFailed)
}

func TestCheckPermissionFailsClosed(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("connection refused")}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	assert.False(t, cache.CheckPermission(context.Background(), 7, authz.PermTicketsView))
}

func TestCheckPermissionMembership(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView, authz.PermInventoryView},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	assert.True(t, cache.CheckPermission(ctx, 7, authz.PermTicketsView))
	assert.False(t, cache.CheckPermission(ctx, 7, authz.PermTicketsDelete))
	assert.EqualValues(t, 1, fetcher.count(), "membership checks share one cached fetch")
}

type gatedFetcher struct {
	arrived chan struct{}
	release chan struct{}
	calls   int64
}

func (f *gatedFetcher) FetchPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	atomic.AddInt64(&f.calls, 1)
	f.arrived <- struct{}{}
	<-f.release
	return []authz.Permission{authz.PermTicketsView}, nil
}

// Concurrent misses each perform their own fetch: there is deliberately no
// request coalescing.
func TestConcurrentMissesAllFetch(t *testing.T) {
	const workers = 4
	fetcher := &gatedFetcher{
		arrived: make(chan struct{}, workers),
		release: make(chan struct{}),
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newTestCache(fetcher, clock)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.FetchPermissions(context.Background(), 7)
		}()
	}

	for i := 0; i < workers; i++ {
		select {
		case <-fetcher.arrived:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d concurrent misses reached the fetcher", i, workers)
		}
	}
	close(fetcher.release)
	wg.Wait()

	assert.EqualValues(t, workers, atomic.LoadInt64(&fetcher.calls))
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	store := permcache.NewMemoryStore()
	fetcher := &countingFetcher{perms: map[int64][]authz.Permission{
		7: {authz.PermTicketsView},
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := permcache.NewCache(store, fetcher, permcache.WithClock(clock.Now))

	require.NoError(t, store.Set(ctx, permcache.KeyPrefix+"7", []byte("{not json")))

	perms, err := cache.FetchPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermTicketsView}, perms)
	assert.EqualValues(t, 1, fetcher.count())
}
