package filter

import (
	"container/list"
	"sync"
)

// lruCache is a size-bounded map that evicts the least recently used key.
// Get reorders entries, so every access takes the write lock.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

type cacheEntry struct {
	key    string
	filter CompiledFilter
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the filter compiled for expression, if cached
func (c *lruCache) Get(expression string) (CompiledFilter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[expression]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).filter, true
}

// Put stores filter, evicting the oldest entry when full
func (c *lruCache) Put(expression string, filter CompiledFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[expression]; ok {
		el.Value.(*cacheEntry).filter = filter
		c.order.MoveToFront(el)
		return
	}

	c.index[expression] = c.order.PushFront(&cacheEntry{key: expression, filter: filter})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).key)
	}
}

// Clear drops every entry
func (c *lruCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.index)
}

// Size returns the number of cached filters
func (c *lruCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
