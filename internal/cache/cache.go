// Package cache is the dashboard's query cache: fetched upstream data is kept
// per key for a staleness window, concurrent identical fetches share a single
// upstream call, and mutations invalidate keys by prefix.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a cached value is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// fetchTimeout bounds a shared fetch, which outlives any single caller.
const fetchTimeout = 60 * time.Second

// Key is a query key tuple, e.g. Key{"machine", "12"}.
type Key []string

const sep = "\x1f"

func (k Key) String() string { return strings.Join(k, sep) }

// HasPrefix reports whether k starts with every element of p.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key     Key
	value   any
	fetched time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]entry
	gen       uint64
	group     singleflight.Group
	staleTime time.Duration
	overrides map[string]time.Duration

	now func() time.Time
	// OnLookup, when set, observes whether a Get was served from cache.
	OnLookup func(root string, hit bool)
}

func New(staleTime time.Duration, overrides map[string]time.Duration) *Cache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Cache{
		entries:   map[string]entry{},
		staleTime: staleTime,
		overrides: overrides,
		now:       time.Now,
	}
}

// StaleTime returns the window for key, honouring per-root overrides.
func (c *Cache) StaleTime(key Key) time.Duration {
	if len(key) > 0 {
		if d, ok := c.overrides[key[0]]; ok {
			return d
		}
	}
	return c.staleTime
}

// Get returns the cached value for key while it is fresh; otherwise it calls
// fetch. Callers share a fetch only within one invalidation generation, so a
// read issued after Invalidate never sees data fetched before it. The fetch
// runs detached from any one caller; each caller waits on its own ctx.
// Errors are returned to every waiting caller and never cached.
func (c *Cache) Get(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	ks := key.String()
	c.mu.Lock()
	e, ok := c.entries[ks]
	fresh := ok && c.now().Sub(e.fetched) < c.StaleTime(key)
	gen := c.gen
	c.mu.Unlock()
	c.observe(key, fresh)
	if fresh {
		return e.value, nil
	}

	flight := ks + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// an invalidation during the fetch makes this result stale already
		if c.gen == gen {
			c.entries[ks] = entry{key: append(Key{}, key...), value: v, fetched: c.now()}
		}
		c.mu.Unlock()
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is the typed form of Get.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every entry whose key starts with one of the prefixes.
func (c *Cache) Invalidate(prefixes ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for ks, e := range c.entries {
		for _, p := range prefixes {
			if e.key.HasPrefix(p) {
				delete(c.entries, ks)
				break
			}
		}
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.entries = map[string]entry{}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) observe(key Key, hit bool) {
	if c.OnLookup == nil {
		return
	}
	root := ""
	if len(key) > 0 {
		root = key[0]
	}
	c.OnLookup(root, hit)
}
