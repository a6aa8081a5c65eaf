package dupes

import (
	"sync"
	"time"
)

// HashCache avoids re-hashing files across detector runs. It is explicit
// and caller-owned rather than hidden process state; entries are keyed by
// (path, size, mtime) so any modification to a file invalidates its entry.
type HashCache interface {
	Get(path string, size int64, modTime time.Time) (hash string, ok bool)
	Put(path string, size int64, modTime time.Time, hash string)
}

type memoryEntry struct {
	size    int64
	modTime int64 // UnixNano
	hash    string
}

// MemoryCache is an in-process HashCache. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(path string, size int64, modTime time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || e.size != size || e.modTime != modTime.UnixNano() {
		return "", false
	}
	return e.hash, true
}

func (c *MemoryCache) Put(path string, size int64, modTime time.Time, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = memoryEntry{
		size:    size,
		modTime: modTime.UnixNano(),
		hash:    hash,
	}
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
