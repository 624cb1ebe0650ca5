package weather

import (
	"sync"
	"time"
)

// Entry is a cached fetch result and the moment it was captured.
type Entry[V any] struct {
	Value      V
	CapturedAt time.Time
}

// Store holds fetch results by cache signature. Entries are overwritten on
// refresh and never evicted.
type Store[V any] interface {
	Get(key string) (Entry[V], bool)
	Set(key string, e Entry[V])
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore[V any] struct {
	mu      sync.Mutex
	entries map[string]Entry[V]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{entries: make(map[string]Entry[V])}
}

func (s *MemoryStore[V]) Get(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore[V]) Set(key string, e Entry[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

// Len returns the number of stored signatures.
func (s *MemoryStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
