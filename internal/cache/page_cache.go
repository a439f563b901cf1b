package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/observability"
)

// IndexPageKeyPrefix namespaces cached index renderings.
const IndexPageKeyPrefix = "index_page:"

// DefaultIndexTTL is how long an index rendering is served before it is rebuilt.
const DefaultIndexTTL = 20 * time.Second

// RenderedPage is a stored rendering of one index page.
type RenderedPage struct {
	PageNumber int             `json:"page_number"`
	Body       json.RawMessage `json:"body"`
	RenderedAt time.Time       `json:"rendered_at"`
	// Hit reports whether the body came from the store.
	Hit bool `json:"-"`
}

// RenderFunc produces the response body for a page on a cache miss.
type RenderFunc func(ctx context.Context) ([]byte, error)

// PageCache serves index renderings until their TTL runs out.
// Writes to posts never invalidate it; only expiry or Clear does.
type PageCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewPageCache builds a cache over store. Non-positive ttl uses DefaultIndexTTL.
func NewPageCache(store Store, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	return &PageCache{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the configured expiry.
func (c *PageCache) TTL() time.Duration {
	return c.ttl
}

// IndexPageKey returns the store key for index page n.
func IndexPageKey(n int) string {
	return fmt.Sprintf("%s%d", IndexPageKeyPrefix, n)
}

// GetOrRender returns the stored rendering for page, or renders, stores and returns a fresh one.
// Store failures are logged and the page is rendered fresh.
func (c *PageCache) GetOrRender(ctx context.Context, page int, render RenderFunc) (*RenderedPage, error) {
	key := IndexPageKey(page)

	raw, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		observability.PageCacheRequests.WithLabelValues(observability.CacheError).Inc()
		middleware.Logger.WarnContext(ctx, "page cache read failed, rendering fresh",
			slog.String("key", key), slog.String("error", err.Error()))
	case found:
		var cached RenderedPage
		if err := json.Unmarshal(raw, &cached); err == nil {
			observability.PageCacheRequests.WithLabelValues(observability.CacheHit).Inc()
			cached.Hit = true
			return &cached, nil
		}
		observability.PageCacheRequests.WithLabelValues(observability.CacheError).Inc()
	default:
		observability.PageCacheRequests.WithLabelValues(observability.CacheMiss).Inc()
	}

	body, err := render(ctx)
	if err != nil {
		return nil, err
	}
	fresh := &RenderedPage{PageNumber: page, Body: body, RenderedAt: c.now().UTC()}

	encoded, err := json.Marshal(fresh)
	if err == nil {
		err = c.store.Set(ctx, key, encoded, c.ttl)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "page cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return fresh, nil
}

// Clear drops every cached index page.
func (c *PageCache) Clear(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, IndexPageKeyPrefix)
}
