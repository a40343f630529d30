package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize is the capacity of the shared cache.
const DefaultSize = 256

// Stats counts lookups.
type Stats struct {
	Hits   int
	Misses int
}

// ProgramCache maps keys to serialized executables, evicting the least
// recently used entry when full. Entries are immutable once inserted.
type ProgramCache struct {
	mu    sync.Mutex
	lru   *lru.Cache
	stats Stats
}

// New returns a cache holding at most size programs.
func New(size int) (*ProgramCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ProgramCache{lru: c}, nil
}

var (
	sharedOnce sync.Once
	shared     *ProgramCache
)

// Shared returns the process-wide cache.
func Shared() *ProgramCache {
	sharedOnce.Do(func() {
		shared, _ = New(DefaultSize)
	})
	return shared
}

// Get returns the blob stored under k. The blob must not be modified.
func (c *ProgramCache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(k)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return v.([]byte), true
}

// Put stores a copy of blob under k. An existing entry is kept; Put reports
// whether blob was inserted.
func (c *ProgramCache) Put(k Key, blob []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(k) {
		return false
	}
	c.lru.Add(k, append([]byte(nil), blob...))
	return true
}

// Remove drops the entry under k, typically one that failed to load.
func (c *ProgramCache) Remove(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lru.Contains(k) {
		return false
	}
	c.lru.Remove(k)
	return true
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every entry and resets the counters.
func (c *ProgramCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.stats = Stats{}
}

// Stats returns the lookup counters.
func (c *ProgramCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
