package scope

import "iter"

// Entry is anything a Container can hold: a typed value wrapping one node.
type Entry interface {
	Node() *Node
}

// Container pairs an ordered slice of typed entries with an anchor node
// whose children mirror it. Every mutation applies the surface edit through
// the anchor first and the slice edit second.
//
// Mutating an entry's node directly (Remove, Splice, Clear on it) slides
// the slice and the tree out of sync; structural changes must go through
// the container. A Container is itself an Entry, so containers nest.
type Container[T Entry] struct {
	anchor  *Node
	entries []T
}

// NewContainer wraps an anchor node, taking over the caller's reference
// to it.
func NewContainer[T Entry](anchor *Node) *Container[T] {
	if anchor == nil {
		panic("scope: nil container anchor")
	}
	return &Container[T]{anchor: anchor}
}

// Node returns the anchor node.
func (c *Container[T]) Node() *Node {
	return c.anchor
}

// Release releases the anchor, tearing down every entry with it.
func (c *Container[T]) Release() {
	c.entries = nil
	c.anchor.Release()
}

// Push appends an entry, transferring the caller's reference to its node.
func (c *Container[T]) Push(e T) {
	c.anchor.Push(e.Node())
	c.entries = append(c.entries, e)
}

// Extend appends entries in order.
func (c *Container[T]) Extend(es ...T) {
	nodes := make([]*Node, len(es))
	for i, e := range es {
		nodes[i] = e.Node()
	}
	c.anchor.Extend(nodes...)
	c.entries = append(c.entries, es...)
}

// Insert places an entry at index i.
func (c *Container[T]) Insert(i int, e T) {
	if i < 0 || i > len(c.entries) {
		panic("scope: container index out of range")
	}
	c.anchor.Splice(i, 0, e.Node())
	var zero T
	c.entries = append(c.entries, zero)
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = e
}

// Splice removes `remove` entries at offset, attaches add in their place,
// and returns the removed entries alive, detached, and owned by the caller.
func (c *Container[T]) Splice(offset, remove int, add ...T) []T {
	if offset < 0 || remove < 0 || offset+remove > len(c.entries) {
		panic("scope: container splice out of range")
	}
	removed := make([]T, remove)
	copy(removed, c.entries[offset:offset+remove])
	// Hand the caller a reference before the tree drops its own.
	for _, e := range removed {
		e.Node().Retain()
	}
	nodes := make([]*Node, len(add))
	for i, e := range add {
		nodes[i] = e.Node()
	}
	c.anchor.Splice(offset, remove, nodes...)

	tail := make([]T, len(c.entries)-offset-remove)
	copy(tail, c.entries[offset+remove:])
	c.entries = append(c.entries[:offset], add...)
	c.entries = append(c.entries, tail...)
	return removed
}

// Pop removes and returns the last entry.
func (c *Container[T]) Pop() (T, bool) {
	var zero T
	if len(c.entries) == 0 {
		return zero, false
	}
	return c.Splice(len(c.entries)-1, 1)[0], true
}

// Remove removes and returns the entry at index i.
func (c *Container[T]) Remove(i int) T {
	if i < 0 || i >= len(c.entries) {
		panic("scope: container index out of range")
	}
	return c.Splice(i, 1)[0]
}

// Clear releases all entries with a single surface call.
func (c *Container[T]) Clear() {
	c.anchor.Clear()
	c.entries = nil
}

// Get returns the entry at index i.
func (c *Container[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(c.entries) {
		return zero, false
	}
	return c.entries[i], true
}

// First returns the first entry.
func (c *Container[T]) First() (T, bool) {
	return c.Get(0)
}

// Last returns the last entry.
func (c *Container[T]) Last() (T, bool) {
	return c.Get(len(c.entries) - 1)
}

// Len reports the number of entries.
func (c *Container[T]) Len() int {
	return len(c.entries)
}

// IsEmpty reports whether the container has no entries.
func (c *Container[T]) IsEmpty() bool {
	return len(c.entries) == 0
}

// All iterates the entries in order.
func (c *Container[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range c.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}
