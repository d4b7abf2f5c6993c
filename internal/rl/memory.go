// internal/rl/memory.go
package rl

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ExperienceStore for single-node runs and
// tests. A mutex guards the slice; the newest attempt lives at index 0.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	attempts []ExploitAttempt
}

// NewMemoryStore creates a store bounded at the given capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		attempts: make([]ExploitAttempt, 0, capacity),
	}
}

// Add inserts at the head and evicts from the tail once over capacity.
func (s *MemoryStore) Add(_ context.Context, attempt ExploitAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append([]ExploitAttempt{attempt}, s.attempts...)
	if len(s.attempts) > s.capacity {
		s.attempts = s.attempts[:s.capacity]
	}
	return nil
}

// GetRecent returns up to n attempts, most recent first.
func (s *MemoryStore) GetRecent(_ context.Context, n int) ([]ExploitAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.attempts) {
		n = len(s.attempts)
	}
	out := make([]ExploitAttempt, n)
	copy(out, s.attempts[:n])
	return out, nil
}

// GetByPredicate scans a bounded recent window for matches.
func (s *MemoryStore) GetByPredicate(ctx context.Context, pred func(ExploitAttempt) bool, n int) ([]ExploitAttempt, error) {
	return filterRecent(ctx, s, pred, n)
}

// Len reports the number of stored attempts.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts), nil
}
