package dataset

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key returns the content address of a document: hex(sha256(b)).
func Key(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Cache memoizes parsed datasets by content address. Identical bytes parse
// once; concurrent loads of the same bytes share one parse. Only successful
// parses are stored. A positive capacity evicts the least recently used entry.
type Cache struct {
	opt      Options
	capacity int

	mu    sync.Mutex
	order *list.List // front = most recently used
	items map[string]*list.Element
	group singleflight.Group

	hits, misses int
}

type cacheEntry struct {
	key string
	ds  *Dataset
}

// NewCache builds a cache parsing with opt. capacity <= 0 means unbounded.
func NewCache(capacity int, opt Options) *Cache {
	return &Cache{
		opt:      opt,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Load returns the dataset for b, parsing it on a miss. The returned key can
// be passed to Evict. name labels a freshly parsed dataset.
func (c *Cache) Load(b []byte, name string) (*Dataset, string, error) {
	key := Key(b)
	if ds, ok := c.Get(key); ok {
		return ds, key, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if ds, ok := c.peek(key); ok {
			return ds, nil
		}
		opt := c.opt
		opt.Name = name
		ds, err := LoadBytes(b, opt)
		if err != nil {
			return nil, err
		}
		c.put(key, ds)
		return ds, nil
	})
	if err != nil {
		return nil, key, err
	}
	return v.(*Dataset), key, nil
}

// Get returns a cached dataset without parsing.
func (c *Cache) Get(key string) (*Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).ds, true
}

// peek looks up key without touching recency or stats.
func (c *Cache) peek(key string) (*Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*cacheEntry).ds, true
	}
	return nil, false
}

func (c *Cache) put(key string, ds *Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).ds = ds
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, ds: ds})
	for c.capacity > 0 && c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).key)
	}
}

// Evict drops one entry. It reports whether the key was present.
func (c *Cache) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// Len returns the number of cached datasets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
