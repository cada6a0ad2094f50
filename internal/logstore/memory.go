package logstore

import (
	"context"
	"sync"
)

// MemoryLog is an in-process ring that drops the oldest entry when full.
// Used when persistence is disabled and in tests.
type MemoryLog[T any] struct {
	mu       sync.RWMutex
	entries  []T
	capacity int
}

// NewMemoryLog creates a log that retains up to capacity entries.
func NewMemoryLog[T any](capacity int) *MemoryLog[T] {
	return &MemoryLog[T]{
		entries:  make([]T, 0, max(capacity, 0)),
		capacity: capacity,
	}
}

func (l *MemoryLog[T]) Capacity() int { return l.capacity }

func (l *MemoryLog[T]) Append(_ context.Context, entry T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capacity <= 0 {
		return nil
	}
	if len(l.entries) >= l.capacity {
		// Drop oldest entry
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MemoryLog[T]) Recent(_ context.Context, n int) ([]T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.entries, n), nil
}
