// Package cache holds recently produced summary records so repeated
// analyses of the same source skip the agent round trip.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pagelens/pagelens/src/summary"
)

// Entry pairs a cached record with its expiration, in a shape that survives
// JSON persistence.
type Entry struct {
	Record    *summary.Record `json:"record"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Cache is a thread-safe LRU of summary records with per-entry TTL.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List
}

type item struct {
	key   string
	entry Entry
}

func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 64
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Key derives a cache key from the analyzed source (URL or raw text).
func Key(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}

// Get returns the cached record for key, expiring stale entries on read.
func (c *Cache) Get(key string) (*summary.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return nil, false
	}
	it := elem.Value.(*item)
	if time.Now().After(it.entry.ExpiresAt) {
		c.order.Remove(elem)
		delete(c.index, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return it.entry.Record, true
}

// Set stores a record, evicting the least recently used entry at capacity.
func (c *Cache) Set(key string, rec *summary.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(c.ttl)
	if elem, ok := c.index[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*item).entry = Entry{Record: rec, ExpiresAt: expires}
		return
	}

	elem := c.order.PushFront(&item{key: key, entry: Entry{Record: rec, ExpiresAt: expires}})
	c.index[key] = elem
	c.evictOverCapacity()
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Dump snapshots the cache for file persistence.
func (c *Cache) Dump() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dump := make(map[string]Entry, len(c.index))
	for k, elem := range c.index {
		dump[k] = elem.Value.(*item).entry
	}
	return dump
}

// Restore loads a persisted snapshot, skipping expired entries and enforcing
// capacity.
func (c *Cache) Restore(dump map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.index = make(map[string]*list.Element, c.capacity)
	now := time.Now()
	for k, e := range dump {
		if now.After(e.ExpiresAt) || e.Record == nil {
			continue
		}
		c.index[k] = c.order.PushFront(&item{key: k, entry: e})
	}
	c.evictOverCapacity()
}

func (c *Cache) evictOverCapacity() {
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*item).key)
	}
}
