// Package cache persists image header probes in a Badger store so repeated
// runs and the pre-warm indexer can skip re-reading unchanged files. Entries
// are validated against file size and modification time on every lookup.
package cache

import (
	"path/filepath"
	"sync/atomic"
)

// Cache provides high-level probe caching operations.
type Cache struct {
	store     *Store
	validator *Validator

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports lookup counters since the cache was opened.
type Stats struct {
	Hits   int64 `json:"hits" yaml:"hits"`
	Misses int64 `json:"misses" yaml:"misses"`
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return newCache(store), nil
}

// OpenInMemory opens a cache that lives only for the life of the process.
func OpenInMemory() (*Cache, error) {
	store, err := OpenMemoryStore()
	if err != nil {
		return nil, err
	}
	return newCache(store), nil
}

func newCache(store *Store) *Cache {
	return &Cache{
		store:     store,
		validator: NewValidator(store),
	}
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached probe for path if one exists and was recorded
// for the same size and modification time.
func (c *Cache) Lookup(path string, size, mtime int64) (*Entry, bool) {
	entry, err := c.store.Get(absPath(path))
	if err != nil || !entry.Matches(size, mtime) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry, true
}

// Record stores a probe result for path.
func (c *Cache) Record(path string, entry *Entry) error {
	entry.Version = CacheVersion
	return c.store.Put(absPath(path), entry)
}

// Update stores many probe results in one batch.
func (c *Cache) Update(entries map[string]*Entry) error {
	batch := make(map[string]*Entry, len(entries))
	for path, e := range entries {
		e.Version = CacheVersion
		batch[absPath(path)] = e
	}
	return c.store.PutBatch(batch)
}

// Prune removes stale entries under root.
func (c *Cache) Prune(root string) (*PruneResult, error) {
	return c.validator.Prune(absPath(root))
}

// Clear removes all cached entries under root and returns how many were
// removed.
func (c *Cache) Clear(root string) (int, error) {
	var total int
	for _, prefix := range treePrefixes(absPath(root)) {
		n, err := c.store.DeletePrefix(prefix)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Forget removes the entry for path and, when path was a directory, every
// entry beneath it. It returns how many entries were removed.
func (c *Cache) Forget(path string) (int, error) {
	abs := absPath(path)
	n, err := c.Clear(abs)
	if err != nil {
		return n, err
	}
	if _, err := c.store.Get(abs); err == nil {
		if err := c.store.Delete(abs); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() (int, error) {
	return c.store.DeletePrefix(nil)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// absPath keys entries by absolute path so relative and absolute callers
// share them.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
