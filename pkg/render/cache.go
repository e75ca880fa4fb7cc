package render

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// CacheStats are the compiled template cache counters.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// templateCache is an LRU of compiled templates keyed by source hash and HTML
// hint. Models never enter it. Failed compilations are not stored.
type templateCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element
	group   singleflight.Group
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key  string
	tmpl template.Template
}

func newTemplateCache(size int) *templateCache {
	return &templateCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element, size),
	}
}

func cacheKey(source string, isHTML bool) string {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])
	if isHTML {
		return key + ":html"
	}
	return key + ":text"
}

// get returns the cached template for source or compiles it. Concurrent misses
// on the same key share one compilation. The shared compilation runs detached
// from any single caller's cancellation; each caller stops waiting when its own
// ctx is done.
func (c *templateCache) get(ctx context.Context, source string, isHTML bool, compile func(context.Context) (template.Template, error)) (template.Template, error) {
	key := cacheKey(source, isHTML)

	if tmpl, ok := c.lookup(key); ok {
		return tmpl, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if tmpl, ok := c.peek(key); ok {
			return tmpl, nil
		}
		tmpl, err := compile(flightCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, tmpl)
		return tmpl, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(template.Template), nil
	}
}

func (c *templateCache) lookup(key string) (template.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).tmpl, true
}

func (c *templateCache) peek(key string) (template.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).tmpl, true
}

func (c *templateCache) store(key string, tmpl template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).tmpl = tmpl
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, tmpl: tmpl})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *templateCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.order.Len(),
	}
}
