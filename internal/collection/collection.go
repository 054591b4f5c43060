package collection

import "errors"

// ErrNotFoundKey is returned when removing a key the collection does not hold.
var ErrNotFoundKey = errors.New("key not found in collection")

// Collection is a capacity-bounded, key-unique list ordered most-recent-first.
// Position 0 is the most recently used element.
//
// Collection is not safe for concurrent use; owners guard it.
type Collection[T any, K comparable] struct {
	items    []T
	capacity int
	keyOf    func(T) K
}

// New creates an empty Collection. A capacity <= 0 means unbounded.
func New[T any, K comparable](capacity int, keyOf func(T) K) *Collection[T, K] {
	return &Collection[T, K]{
		capacity: capacity,
		keyOf:    keyOf,
	}
}

// FromItems builds a Collection from an existing most-recent-first slice,
// dropping duplicate keys (first occurrence wins) and anything past capacity.
func FromItems[T any, K comparable](capacity int, keyOf func(T) K, items []T) *Collection[T, K] {
	c := New(capacity, keyOf)
	seen := make(map[K]struct{}, len(items))
	for _, item := range items {
		if c.capacity > 0 && len(c.items) >= c.capacity {
			break
		}
		k := keyOf(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		c.items = append(c.items, item)
	}
	return c
}

// Len returns the number of elements.
func (c *Collection[T, K]) Len() int { return len(c.items) }

// Cap returns the configured capacity (<= 0 for unbounded).
func (c *Collection[T, K]) Cap() int { return c.capacity }

// At returns the element at index i.
func (c *Collection[T, K]) At(i int) T { return c.items[i] }

// Items returns a copy of the elements, most recent first.
func (c *Collection[T, K]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// InsertFront prepends item, evicting the tail first when the collection is full.
// It does not check uniqueness; callers must look the key up first.
func (c *Collection[T, K]) InsertFront(item T) {
	if c.capacity > 0 && len(c.items) >= c.capacity {
		c.items = c.items[:c.capacity-1]
	}
	c.items = append(c.items, item)
	copy(c.items[1:], c.items[:len(c.items)-1])
	c.items[0] = item
}

// FindByKey returns the index of the element whose key equals key.
func (c *Collection[T, K]) FindByKey(key K) (int, bool) {
	return c.IndexFunc(func(item T) bool { return c.keyOf(item) == key })
}

// IndexFunc returns the index of the first element satisfying match.
func (c *Collection[T, K]) IndexFunc(match func(T) bool) (int, bool) {
	for i, item := range c.items {
		if match(item) {
			return i, true
		}
	}
	return -1, false
}

// PromoteToFront moves the element at index to position 0. The length is unchanged,
// so nothing is evicted. Out-of-range indexes are ignored.
func (c *Collection[T, K]) PromoteToFront(index int) {
	if index <= 0 || index >= len(c.items) {
		return
	}
	item := c.items[index]
	c.RemoveAt(index)
	c.InsertFront(item)
}

// RemoveAt splices out the element at index.
func (c *Collection[T, K]) RemoveAt(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	var zero T
	copy(c.items[index:], c.items[index+1:])
	c.items[len(c.items)-1] = zero
	c.items = c.items[:len(c.items)-1]
}

// RemoveByKey removes the element with the given key or returns ErrNotFoundKey.
func (c *Collection[T, K]) RemoveByKey(key K) error {
	i, ok := c.FindByKey(key)
	if !ok {
		return ErrNotFoundKey
	}
	c.RemoveAt(i)
	return nil
}

// Clear empties the collection.
func (c *Collection[T, K]) Clear() {
	c.items = nil
}

// AddOrPromote promotes the stored element with item's key, keeping its content,
// or inserts item at the front when the key is new.
func (c *Collection[T, K]) AddOrPromote(item T) {
	if i, ok := c.FindByKey(c.keyOf(item)); ok {
		c.PromoteToFront(i)
		return
	}
	c.InsertFront(item)
}

// Upsert behaves like AddOrPromote but replaces the stored content with item.
func (c *Collection[T, K]) Upsert(item T) {
	if i, ok := c.FindByKey(c.keyOf(item)); ok {
		c.items[i] = item
		c.PromoteToFront(i)
		return
	}
	c.InsertFront(item)
}

// Replace overwrites the element with item's key in place, keeping its position.
// It reports false when no such element exists.
func (c *Collection[T, K]) Replace(item T) bool {
	i, ok := c.FindByKey(c.keyOf(item))
	if !ok {
		return false
	}
	c.items[i] = item
	return true
}

// RemoveFunc removes every element satisfying match and returns how many were removed.
func (c *Collection[T, K]) RemoveFunc(match func(T) bool) int {
	kept := c.items[:0]
	for _, it := range c.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	removed := len(c.items) - len(kept)
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}
