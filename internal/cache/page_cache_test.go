package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMemoryCache(ttl time.Duration) (*PageCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.now
	pc := NewPageCache(store, ttl)
	pc.now = clock.now
	return pc, clock
}

func renderer(body string, calls *int) RenderFunc {
	return func(context.Context) ([]byte, error) {
		*calls++
		return []byte(body), nil
	}
}

func TestPageCache_ServesStaleUntilExpiry(t *testing.T) {
	ctx := context.Background()
	pc, clock := newMemoryCache(20 * time.Second)

	calls := 0
	first, err := pc.GetOrRender(ctx, 1, renderer(`{"v":1}`, &calls))
	require.NoError(t, err)
	assert.False(t, first.Hit)
	assert.JSONEq(t, `{"v":1}`, string(first.Body))

	// The underlying data changed but the cached body is still served.
	clock.advance(19 * time.Second)
	second, err := pc.GetOrRender(ctx, 1, renderer(`{"v":2}`, &calls))
	require.NoError(t, err)
	assert.True(t, second.Hit)
	assert.JSONEq(t, `{"v":1}`, string(second.Body))
	assert.Equal(t, 1, calls)

	clock.advance(2 * time.Second)
	third, err := pc.GetOrRender(ctx, 1, renderer(`{"v":2}`, &calls))
	require.NoError(t, err)
	assert.False(t, third.Hit)
	assert.JSONEq(t, `{"v":2}`, string(third.Body))
	assert.Equal(t, 2, calls)
}

func TestPageCache_PagesAreKeyedSeparately(t *testing.T) {
	ctx := context.Background()
	pc, _ := newMemoryCache(time.Minute)

	calls := 0
	_, err := pc.GetOrRender(ctx, 1, renderer(`"one"`, &calls))
	require.NoError(t, err)
	p2, err := pc.GetOrRender(ctx, 2, renderer(`"two"`, &calls))
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, p2.PageNumber)
	assert.JSONEq(t, `"two"`, string(p2.Body))
}

func TestPageCache_ClearForcesRerender(t *testing.T) {
	ctx := context.Background()
	pc, _ := newMemoryCache(time.Minute)

	calls := 0
	_, err := pc.GetOrRender(ctx, 1, renderer(`1`, &calls))
	require.NoError(t, err)
	require.NoError(t, pc.Clear(ctx))

	page, err := pc.GetOrRender(ctx, 1, renderer(`2`, &calls))
	require.NoError(t, err)
	assert.False(t, page.Hit)
	assert.Equal(t, 2, calls)
}

func TestPageCache_RenderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	pc, _ := newMemoryCache(time.Minute)

	boom := errors.New("db down")
	_, err := pc.GetOrRender(ctx, 1, func(context.Context) ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	calls := 0
	page, err := pc.GetOrRender(ctx, 1, renderer(`"ok"`, &calls))
	require.NoError(t, err)
	assert.False(t, page.Hit)
	assert.Equal(t, 1, calls)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("unreachable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("unreachable")
}

func (failingStore) DeletePrefix(context.Context, string) error {
	return errors.New("unreachable")
}

func TestPageCache_FailsOpen(t *testing.T) {
	pc := NewPageCache(failingStore{}, time.Minute)

	calls := 0
	page, err := pc.GetOrRender(context.Background(), 1, renderer(`[]`, &calls))
	require.NoError(t, err)
	assert.False(t, page.Hit)
	assert.Equal(t, 1, calls)
}

func TestNewPageCache_DefaultTTL(t *testing.T) {
	pc := NewPageCache(NewMemoryStore(), 0)
	assert.Equal(t, DefaultIndexTTL, pc.TTL())
}

func newRedisCache(t *testing.T, ttl time.Duration) (*PageCache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPageCache(NewRedisStore(client), ttl), mr, client
}

func TestMemoryStore_SweepsExpiredPages(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.now
	pc := NewPageCache(store, 20*time.Second)
	pc.now = clock.now

	calls := 0
	for page := 1; page <= 1000; page++ {
		_, err := pc.GetOrRender(ctx, page, renderer(`"p"`, &calls))
		require.NoError(t, err)
	}
	assert.Len(t, store.entries, 1000)

	clock.advance(time.Hour)
	_, err := pc.GetOrRender(ctx, 1, renderer(`"p"`, &calls))
	require.NoError(t, err)
	assert.Len(t, store.entries, 1)
}

func TestPageCache_RedisExpiry(t *testing.T) {
	ctx := context.Background()
	pc, mr, _ := newRedisCache(t, 20*time.Second)

	calls := 0
	_, err := pc.GetOrRender(ctx, 1, renderer(`{"posts":[1]}`, &calls))
	require.NoError(t, err)
	assert.True(t, mr.Exists(IndexPageKey(1)))

	hit, err := pc.GetOrRender(ctx, 1, renderer(`{"posts":[]}`, &calls))
	require.NoError(t, err)
	assert.True(t, hit.Hit)
	assert.JSONEq(t, `{"posts":[1]}`, string(hit.Body))

	mr.FastForward(21 * time.Second)

	fresh, err := pc.GetOrRender(ctx, 1, renderer(`{"posts":[]}`, &calls))
	require.NoError(t, err)
	assert.False(t, fresh.Hit)
	assert.JSONEq(t, `{"posts":[]}`, string(fresh.Body))
	assert.Equal(t, 2, calls)
}

func TestRedisStore_DeletePrefixLeavesOtherKeys(t *testing.T) {
	ctx := context.Background()
	pc, mr, client := newRedisCache(t, time.Minute)

	require.NoError(t, client.Set(ctx, "ratelimit:posts:1", "3", 0).Err())
	calls := 0
	for page := 1; page <= 3; page++ {
		_, err := pc.GetOrRender(ctx, page, renderer(`null`, &calls))
		require.NoError(t, err)
	}

	require.NoError(t, pc.Clear(ctx))

	for page := 1; page <= 3; page++ {
		assert.False(t, mr.Exists(IndexPageKey(page)))
	}
	assert.True(t, mr.Exists("ratelimit:posts:1"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	client, err = NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "")
	assert.Error(t, err)
}
