// Package ring provides a fixed-capacity ring buffer.
package ring

// Buffer holds at most Cap items. Pushing into a full buffer overwrites the
// oldest item. A Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest item
	n     int
}

// New creates a buffer that keeps the last capacity items. Capacity must be
// positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends items, evicting the oldest ones when full.
func (b *Buffer[T]) Push(items ...T) {
	for _, it := range items {
		b.items[(b.head+b.n)%len(b.items)] = it
		if b.n < len(b.items) {
			b.n++
		} else {
			b.head = (b.head + 1) % len(b.items)
		}
	}
}

// Next returns a pointer to the slot the next Push would fill and claims it.
// It lets pools recycle slots in place without copying.
func (b *Buffer[T]) Next() *T {
	i := (b.head + b.n) % len(b.items)
	if b.n < len(b.items) {
		b.n++
	} else {
		b.head = (b.head + 1) % len(b.items)
	}
	return &b.items[i]
}

// At returns a pointer to the i-th oldest item. i must be below Len.
func (b *Buffer[T]) At(i int) *T {
	if i < 0 || i >= b.n {
		panic("ring: index out of range")
	}
	return &b.items[(b.head+i)%len(b.items)]
}

// Len returns the number of items held.
func (b *Buffer[T]) Len() int {
	return b.n
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Empty returns true if the buffer has no items.
func (b *Buffer[T]) Empty() bool {
	return b.n == 0
}

// Items returns the held items from oldest to newest in a new slice.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.n)
	for i := range out {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Clear removes all items.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.n = 0, 0
}
