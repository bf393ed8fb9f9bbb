package buffer

import (
	"sync"
)

// Buffer collects entries up to a limit and counts the ones it had to drop.
// A limit <= 0 means unbounded.
type Buffer[T any] struct {
	mu      sync.Mutex
	ts      []T
	limit   int
	dropped int
}

func NewBuffer[T any](limit int) *Buffer[T] {
	return &Buffer[T]{limit: limit}
}

// Add appends e and reports whether it was kept.
func (b *Buffer[T]) Add(e T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && len(b.ts) >= b.limit {
		b.dropped++
		return false
	}
	b.ts = append(b.ts, e)
	return true
}

// Dropped reports how many entries were rejected by the limit.
func (b *Buffer[T]) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Drain returns the kept entries and empties the buffer.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	es := b.ts
	b.ts = nil
	b.dropped = 0
	b.mu.Unlock()
	return es
}
