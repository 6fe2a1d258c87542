// Package cache implements a bounded in-memory key/value store with
// LRU eviction and per-entry TTL.
//
// Read-heavy services put file content here to avoid redundant disk
// reads. Expiry is enforced twice, independently: passively on every
// Get (an expired entry is a miss and is removed on that read), and
// proactively by a background sweep that runs on a configurable
// interval so keys that are never re-read still get reclaimed.
//
// The cache never surfaces errors: any internal fault degrades to a
// miss so a caching problem can never fail the primary operation.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds cache tuning knobs, supplied at service bootstrap.
type Config struct {
	// MaxSize bounds the number of entries. Inserting into a full
	// cache evicts the least-recently-accessed entry first.
	MaxSize int
	// TTL is the default lifetime applied by Set. Zero means entries
	// never expire unless SetWithTTL says otherwise.
	TTL time.Duration
	// CleanupInterval is the background sweep period. Zero disables
	// the sweep; passive expiry on Get still applies.
	CleanupInterval time.Duration
	// RefreshOnAccess promotes an entry in the recency order on every
	// hit. When false, recency equals insertion order.
	RefreshOnAccess bool
}

// DefaultConfig returns the configuration used when the caller
// supplies nothing.
func DefaultConfig() Config {
	return Config{
		MaxSize:         256,
		TTL:             5 * time.Minute,
		CleanupInterval: time.Minute,
		RefreshOnAccess: true,
	}
}

// Stats is a snapshot of hit/miss/eviction counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// entry is owned exclusively by the cache; value bytes are copied on
// the way in and on the way out so callers never share storage.
type entry struct {
	key            string
	value          []byte
	insertedAt     time.Time
	expiresAt      time.Time // zero means no expiry
	lastAccessedAt time.Time
	elem           *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is a bounded LRU/TTL store safe for concurrent use by many
// in-flight dispatches and its own sweep goroutine.
type Cache struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front = most recently accessed
	hits    uint64
	misses  uint64
	evicted uint64

	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates a cache and starts its sweep goroutine when
// CleanupInterval is set. Close must be called to stop the sweep.
func New(cfg Config, log zerolog.Logger) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	c := &Cache{
		cfg:     cfg,
		log:     log,
		entries: make(map[string]*entry),
		order:   list.New(),
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Set inserts or replaces an entry using the configured default TTL.
func (c *Cache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.cfg.TTL)
}

// SetWithTTL inserts or replaces an entry with an explicit lifetime.
// A zero ttl means the entry never expires. If the store is full, the
// least-recently-accessed live entry is evicted first (expired entries
// are reclaimed before any live entry is touched).
func (c *Cache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = append([]byte(nil), value...)
		e.insertedAt = now
		e.lastAccessedAt = now
		e.expiresAt = expiry(now, ttl)
		c.order.MoveToFront(e.elem)
		return
	}

	if len(c.entries) >= c.cfg.MaxSize {
		c.makeRoomLocked(now)
	}

	e := &entry{
		key:            key,
		value:          append([]byte(nil), value...),
		insertedAt:     now,
		lastAccessedAt: now,
		expiresAt:      expiry(now, ttl),
	}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
}

// Get returns a copy of the stored value. An entry past its TTL is a
// miss and is removed on this read, regardless of sweep timing.
func (c *Cache) Get(key string) ([]byte, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(now) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	c.hits++
	if c.cfg.RefreshOnAccess {
		e.lastAccessedAt = now
		c.order.MoveToFront(e.elem)
	}
	return append([]byte(nil), e.value...), true
}

// Delete removes a single entry. Write-through callers use this to
// invalidate after a mutation.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Clear drops every entry. Counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
}

// Len reports the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters. HitRate is 0 when no
// access has happened yet.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evicted}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Close cancels the sweep goroutine and clears the store. Safe to call
// more than once.
func (c *Cache) Close() error {
	c.stopped.Do(func() { close(c.stop) })
	c.wg.Wait()
	c.Clear()
	return nil
}

// makeRoomLocked frees one slot. Expired entries go first; otherwise
// the back of the recency list is the least-recently-accessed live
// entry (ties resolve to the oldest insertion because equal-recency
// entries keep their insertion order in the list).
func (c *Cache) makeRoomLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		if e := elem.Value.(*entry); e.expired(now) {
			c.removeLocked(e)
			return
		}
	}
	if elem := c.order.Back(); elem != nil {
		c.removeLocked(elem.Value.(*entry))
		c.evicted++
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}

// sweepLoop proactively removes expired entries so memory stays
// bounded even for keys that are never read again. It is redundant
// with the passive check in Get and both must stay correct alone.
func (c *Cache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.sweep(time.Now()); n > 0 {
				c.log.Debug().Int("removed", n).Msg("cache sweep reclaimed expired entries")
			}
		}
	}
}

// sweep removes every entry expired as of now and reports how many.
func (c *Cache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for _, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(e)
			removed++
		}
	}
	return removed
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
