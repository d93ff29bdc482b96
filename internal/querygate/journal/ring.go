// Package journal provides the bounded, append-only buffer behind the
// history and audit logs.
package journal

import "sync"

// Ring keeps at most capacity items. Appending beyond capacity evicts the
// oldest items, so the buffer is a sliding window of the most recent ones.
// Reads run in parallel; each mutation holds the write lock for that call only.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
}

// New returns an empty ring. Non-positive capacities are raised to 1.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, 0, capacity), capacity: capacity}
}

// Append adds item and returns how many old items were evicted.
func (r *Ring[T]) Append(item T) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(item)
}

// Update runs fn under the write lock with the newest item (if any) and
// appends what fn returns. Callers use it to derive the new item from the
// last one atomically.
func (r *Ring[T]) Update(fn func(last *T) T) (T, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *T
	if n := len(r.items); n > 0 {
		last = &r.items[n-1]
	}
	item := fn(last)
	return item, r.appendLocked(item)
}

func (r *Ring[T]) appendLocked(item T) int {
	r.items = append(r.items, item)
	over := len(r.items) - r.capacity
	if over <= 0 {
		return 0
	}
	// shift in place; the backing array never exceeds capacity+1
	n := copy(r.items, r.items[over:])
	var zero T
	for i := n; i < len(r.items); i++ {
		r.items[i] = zero
	}
	r.items = r.items[:n]
	return over
}

// All returns a copy of every item in append order.
func (r *Ring[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Recent returns up to n items, newest first.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > len(r.items) {
		n = len(r.items)
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, 0, n)
	for i := len(r.items) - 1; i >= len(r.items)-n; i-- {
		out = append(out, r.items[i])
	}
	return out
}

// Filter returns the items keep accepts, in append order.
func (r *Ring[T]) Filter(keep func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0)
	for _, it := range r.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Find returns the first item match accepts.
func (r *Ring[T]) Find(match func(T) bool) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Snapshot runs fn over the items under the read lock. fn must not retain
// the slice or call back into the ring.
func (r *Ring[T]) Snapshot(fn func(items []T)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.items)
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Ring[T]) Cap() int { return r.capacity }

func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
	r.items = r.items[:0]
}
