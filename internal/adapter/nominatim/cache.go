package nominatim

import (
	"context"
	"fmt"
	"sync"

	"github.com/lavorimap/roadworks-etl/internal/domain"
	"github.com/lavorimap/roadworks-etl/internal/observability"
)

// Cached wraps a Geocoder with an in-memory LRU cache so a run never
// resolves the same position hint (or reverse-looks-up the same point)
// twice. Negative results are cached too: within one run, a hint that
// failed once will fail again, and retrying it would burn a slot of the
// rate-limited gate for nothing.
type Cached struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCached creates a cache decorator around a geocoder.
func NewCached(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) Forward(ctx context.Context, query string) (*domain.Geo, error) {
	key := "fwd:" + query
	if v, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("forward", "hit").Inc()
		geo, _ := v.(*domain.Geo)
		return geo, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("forward", "miss").Inc()

	geo, err := c.inner.Forward(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, geo)
	return geo, nil
}

func (c *Cached) Reverse(ctx context.Context, g domain.Geo) (*domain.Address, error) {
	// Round to ~11m so near-identical points share an entry.
	key := fmt.Sprintf("rev:%.4f,%.4f", g.Lat, g.Lon)
	if v, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("reverse", "hit").Inc()
		addr, _ := v.(*domain.Address)
		return addr, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("reverse", "miss").Inc()

	addr, err := c.inner.Reverse(ctx, g)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, addr)
	return addr, nil
}

// lruCache is a minimal thread-safe LRU keyed by string.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value any
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value any) {
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

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
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

func (c *lruCache) remove(e *entry) {
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
	c.remove(c.tail)
}
