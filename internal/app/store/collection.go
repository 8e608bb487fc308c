package store

import "slices"

// collection keeps entities by key in first-seen order. Put replaces the
// stored value wholesale, which is what makes authoritative snapshots
// idempotent.
type collection[K comparable, V any] struct {
	order []K
	items map[K]V
}

func newCollection[K comparable, V any]() *collection[K, V] {
	return &collection[K, V]{items: make(map[K]V)}
}

func (c *collection[K, V]) Get(k K) (V, bool) {
	v, ok := c.items[k]
	return v, ok
}

func (c *collection[K, V]) Put(k K, v V) {
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = v
}

func (c *collection[K, V]) Delete(k K) bool {
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	for i, key := range c.order {
		if key == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection[K, V]) Values() []V {
	out := make([]V, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// Update rewrites every value in place.
func (c *collection[K, V]) Update(fn func(V) V) {
	for _, k := range c.order {
		c.items[k] = fn(c.items[k])
	}
}

func (c *collection[K, V]) Len() int { return len(c.order) }

// clone copies the index; values are shared, Put never mutates them.
func (c *collection[K, V]) clone() *collection[K, V] {
	out := &collection[K, V]{order: slices.Clone(c.order), items: make(map[K]V, len(c.items))}
	for k, v := range c.items {
		out.items[k] = v
	}
	return out
}

func (c *collection[K, V]) Clear() {
	c.order = nil
	c.items = make(map[K]V)
}
