// Package listing provides the directory listing cache used by cosfs.
//
// The cache maps a normalized directory path ("" for the root, "bucket",
// "bucket/prefix") to the entries the store returned for it. Object stores
// charge per LIST request and answer slowly compared to a local lookup, so
// repeated walks of the same tree are served from here until a mutation
// below a path invalidates it.
package listing

import (
	"container/list"
	"sync"
	"time"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Config holds the tunables of the listing cache.
type Config struct {
	// Enabled controls whether caching is active. When false Get always
	// misses and Put does nothing.
	Enabled bool

	// TTL is how long an entry stays valid. Zero means entries never expire.
	TTL time.Duration

	// MaxPaths bounds the number of cached directories (LRU eviction).
	// Zero means unbounded.
	MaxPaths int
}

// DefaultConfig returns an enabled cache without expiry or size bound.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Invalidator is the part of Cache needed by mutating operations.
type Invalidator interface {
	Invalidate(path string)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
	Entries       int
}

// entry is one cached directory listing.
type entry struct {
	path     string
	children []store.ObjectInfo
	stored   time.Time
	lruNode  *list.Element
}

// Cache is an LRU + TTL cache of directory listings.
//
// Thread Safety:
// All operations take a single mutex. Get updates LRU order, so it needs
// the exclusive lock as well.
type Cache struct {
	enabled  bool
	ttl      time.Duration
	maxPaths int
	metrics  Metrics

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	stats   Stats

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Cache. A nil metrics selects the no-op implementation.
func New(cfg Config, metrics Metrics) *Cache {
	if !cfg.Enabled {
		logger.Debug("Listing cache disabled")
	} else {
		logger.Debug("Listing cache enabled: ttl=%v max_paths=%d", cfg.TTL, cfg.MaxPaths)
	}

	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Cache{
		enabled:  cfg.Enabled,
		ttl:      cfg.TTL,
		maxPaths: cfg.MaxPaths,
		metrics:  metrics,
		entries:  make(map[string]*entry),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Get returns the cached listing of path.
//
// Returns false if the cache is disabled, the path is unknown or the entry
// expired. Expired entries are dropped on access.
func (c *Cache) Get(path string) ([]store.ObjectInfo, bool) {
	if !c.enabled {
		return nil, false
	}

	key := cospath.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		c.removeLocked(e)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		c.metrics.RecordMiss()
		return nil, false
	}

	c.lru.MoveToFront(e.lruNode)
	c.stats.Hits++
	c.metrics.RecordHit()

	out := make([]store.ObjectInfo, len(e.children))
	copy(out, e.children)
	return out, true
}

// Put stores the listing of path, replacing any previous one.
func (c *Cache) Put(path string, children []store.ObjectInfo) {
	if !c.enabled {
		return
	}

	key := cospath.Normalize(path)
	stored := make([]store.ObjectInfo, len(children))
	copy(stored, children)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.children = stored
		existing.stored = c.now()
		c.lru.MoveToFront(existing.lruNode)
		return
	}

	if c.maxPaths > 0 {
		for len(c.entries) >= c.maxPaths {
			c.evictOldestLocked()
		}
	}

	e := &entry{path: key, children: stored, stored: c.now()}
	e.lruNode = c.lru.PushFront(e)
	c.entries[key] = e
	c.metrics.SetEntries(len(c.entries))
}

// Invalidate removes path and every ancestor up to and including the root.
func (c *Cache) Invalidate(path string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, p := range cospath.Ancestors(path) {
		if e, ok := c.entries[p]; ok {
			c.removeLocked(e)
			removed++
		}
	}

	c.stats.Invalidations++
	c.metrics.RecordInvalidation(removed)
	logger.Debug("Invalidated listing cache for %q (%d entries)", cospath.Normalize(path), removed)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.lru.Init()
	c.metrics.RecordInvalidation(n)
	c.metrics.SetEntries(0)

	logger.Debug("Cleared listing cache (%d entries)", n)
}

// Len returns the number of cached directories.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// evictOldestLocked must be called with mu held.
func (c *Cache) evictOldestLocked() {
	oldest := c.lru.Back()
	if oldest == nil {
		return
	}
	e := oldest.Value.(*entry)
	c.removeLocked(e)
	c.stats.Evictions++
	c.metrics.RecordEviction()

	logger.Debug("Evicted listing cache entry: %q", e.path)
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.lruNode)
	delete(c.entries, e.path)
	c.metrics.SetEntries(len(c.entries))
}
