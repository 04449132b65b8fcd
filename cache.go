package depot

import "github.com/rotisserie/eris"

// SimpleCache is a slice-backed Cache. A maxCapacity of 0 means unbounded.
type SimpleCache[K comparable, T any] struct {
	items       []T
	itemIndices map[K]int
	maxCapacity int
}

func newSimpleCache[K comparable, T any](maxCapacity int) *SimpleCache[K, T] {
	return &SimpleCache[K, T]{
		itemIndices: make(map[K]int),
		maxCapacity: maxCapacity,
	}
}

func (c *SimpleCache[K, T]) GetIndex(key K) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

// GetItem returns a pointer into the cache; it is invalidated by Register.
func (c *SimpleCache[K, T]) GetItem(index int) *T {
	return &c.items[index]
}

func (c *SimpleCache[K, T]) Register(key K, item T) (int, error) {
	if _, ok := c.itemIndices[key]; ok {
		return -1, eris.Errorf("cache key already registered: %v", key)
	}
	if c.maxCapacity > 0 && len(c.items) >= c.maxCapacity {
		return -1, eris.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[K, T]) Len() int { return len(c.items) }

func (c *SimpleCache[K, T]) Clear() {
	c.items = c.items[:0]
	c.itemIndices = make(map[K]int)
}
