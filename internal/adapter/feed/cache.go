package feed

import (
	"context"
	"sync"

	"github.com/couchcryptid/casemap-service/internal/observability"
)

// SliceFetcher is the part of the feed the backfill walk reads.
type SliceFetcher interface {
	FetchLatestSlice(ctx context.Context, token int64) ([]byte, error)
	FetchSlice(ctx context.Context, date string) ([]byte, error)
}

// CachedFetcher wraps a SliceFetcher with an in-memory LRU cache for
// historical slices. The latest slice changes daily and is never cached.
// Cached payloads are shared and must not be modified by callers.
type CachedFetcher struct {
	inner   SliceFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a slice fetcher.
func NewCachedFetcher(inner SliceFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchLatestSlice(ctx context.Context, token int64) ([]byte, error) {
	return c.inner.FetchLatestSlice(ctx, token)
}

func (c *CachedFetcher) FetchSlice(ctx context.Context, date string) ([]byte, error) {
	if body, ok := c.cache.get(date); ok {
		c.metrics.FeedCache.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.FeedCache.WithLabelValues("miss").Inc()

	body, err := c.inner.FetchSlice(ctx, date)
	if err != nil {
		// Failures are not cached so a skipped date can be retried on refresh.
		return nil, err
	}
	c.cache.put(date, body)
	return body, nil
}

// lruCache is a simple thread-safe LRU cache of raw payloads keyed by date.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	for len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
