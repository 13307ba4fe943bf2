package dataset

import (
	"bytes"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// FetchFunc produces a raw payload.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetcher returns the payload cached under key when it is younger than
// maxAge, otherwise it calls fetch and caches the result.
type Fetcher interface {
	GetOrFetch(ctx context.Context, key string, fetch FetchFunc, maxAge time.Duration) ([]byte, error)
}

type cacheEntry struct {
	data    []byte
	fetched time.Time
}

// MemoryCache is an in-process Fetcher. Concurrent misses on one key share a
// single fetch.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// GetOrFetch implements Fetcher. A non-positive maxAge always fetches.
func (c *MemoryCache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, maxAge time.Duration) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && maxAge > 0 && c.now().Sub(e.fetched) < maxAge {
		return e.data, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{data: data, fetched: c.now()}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops key from the cache.
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// LoadCached reads a table from a payload obtained through f.
func LoadCached(ctx context.Context, f Fetcher, key string, format Format, fetch FetchFunc, maxAge time.Duration) (*table.Table, error) {
	data, err := f.GetOrFetch(ctx, key, fetch, maxAge)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data), format)
}
