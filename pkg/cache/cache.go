package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an entry is served after it was stored.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxEntries bounds the cache when Options.MaxEntries is zero.
	DefaultMaxEntries = 1024
)

// Eviction reasons reported to the Observer.
const (
	ReasonExpired  = "expired"
	ReasonCapacity = "capacity"
)

// Entry is a cached upstream payload.
type Entry struct {
	// Payload is the body returned by the upstream.
	Payload []byte

	// ContentType is the upstream Content-Type header.
	ContentType string

	// InsertedAt is when the entry was stored.
	InsertedAt time.Time
}

// Observer receives cache events. The metrics collector implements it.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEviction(cache, reason string, n int)
	CacheSize(cache string, n int)
}

// Options configures a Cache.
type Options struct {
	// Name labels the cache in metrics and logs.
	Name string

	// TTL is the entry lifetime. Zero means DefaultTTL.
	TTL time.Duration

	// MaxEntries bounds the number of entries. Zero means DefaultMaxEntries.
	MaxEntries int

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time

	// Observer is notified of hits, misses, evictions and size changes.
	Observer Observer
}

type item struct {
	key   string
	entry Entry
}

// Cache is a bounded, thread-safe TTL cache keyed by upstream URL.
//
// Expiry is lazy: Get reports an expired entry as absent without removing
// it. Expired entries are removed by Sweep, which runs after every Set and
// may also be driven by a Scheduler. When the cache is full the least
// recently used entry is evicted.
type Cache struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	observer   Observer

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	closed  bool
}

// New creates a cache with the given options.
func New(opts Options) *Cache {
	if opts.Name == "" {
		opts.Name = "images"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Cache{
		name:       opts.Name,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Clock,
		observer:   opts.Observer,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Name returns the cache label.
func (c *Cache) Name() string {
	return c.name
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key if it was stored less than TTL ago.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.lookup(key, true)
}

// Peek is Get without reporting a hit or miss to the Observer. It still
// refreshes the entry's recency.
func (c *Cache) Peek(key string) (Entry, bool) {
	return c.lookup(key, false)
}

func (c *Cache) lookup(key string, observe bool) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.miss(observe)
		return Entry{}, false
	}

	el, ok := c.entries[key]
	if !ok {
		c.miss(observe)
		return Entry{}, false
	}

	it := el.Value.(*item)
	if !c.fresh(it.entry) {
		// Left in place for Sweep
		c.miss(observe)
		return Entry{}, false
	}

	c.order.MoveToFront(el)
	if observe && c.observer != nil {
		c.observer.CacheHit(c.name)
	}
	return it.entry, true
}

// Set stores payload under key with the current time, replacing any
// existing entry, and then sweeps expired entries. It returns the entry as
// stored; a closed cache stores nothing but still returns the entry.
func (c *Cache) Set(key string, payload []byte, contentType string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		Payload:     payload,
		ContentType: contentType,
		InsertedAt:  c.now(),
	}
	if c.closed {
		return entry
	}

	if el, ok := c.entries[key]; ok {
		el.Value.(*item).entry = entry
		c.order.MoveToFront(el)
	} else {
		if len(c.entries) >= c.maxEntries {
			// Prefer dropping stale entries over live ones
			c.sweepLocked()
		}
		for len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.entries[key] = c.order.PushFront(&item{key: key, entry: entry})
	}

	c.sweepLocked()
	c.reportSize()
	return entry
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
		c.reportSize()
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.sweepLocked()
	if n > 0 {
		c.reportSize()
	}
	return n
}

// Len returns the number of stored entries, including expired entries
// that have not been swept yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries. The cache stays usable.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.reportSize()
}

// Close clears the cache and makes it reject further writes.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.reportSize()
}

// Closed reports whether Close has been called.
func (c *Cache) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.InsertedAt) < c.ttl
}

// sweepLocked must be called with mu held.
func (c *Cache) sweepLocked() int {
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		it := el.Value.(*item)
		if !c.fresh(it.entry) {
			c.order.Remove(el)
			delete(c.entries, it.key)
			removed++
		}
		el = prev
	}
	if removed > 0 && c.observer != nil {
		c.observer.CacheEviction(c.name, ReasonExpired, removed)
	}
	return removed
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*item).key)
	if c.observer != nil {
		c.observer.CacheEviction(c.name, ReasonCapacity, 1)
	}
}

func (c *Cache) miss(observe bool) {
	if observe && c.observer != nil {
		c.observer.CacheMiss(c.name)
	}
}

func (c *Cache) reportSize() {
	if c.observer != nil {
		c.observer.CacheSize(c.name, len(c.entries))
	}
}
