// internal/rl/store.go
package rl

import "context"

// DefaultCapacity bounds the experience buffer when no capacity is
// configured.
const DefaultCapacity = 10000

// lookaheadFactor bounds how far predicate queries scan: a query for n
// matches reads at most lookaheadFactor*n recent records. When matches
// are sparse this under-returns; that trade-off keeps reads bounded and
// is intentional.
const lookaheadFactor = 2

// ExperienceStore is a capacity-bounded, insertion-ordered append log of
// exploit attempts. Add is immediately durable and safe under concurrent
// writers; reads are eventually-consistent snapshots.
type ExperienceStore interface {
	// Add inserts the attempt at the head, evicting the oldest record
	// once the store exceeds its capacity.
	Add(ctx context.Context, attempt ExploitAttempt) error
	// GetRecent returns up to n most recently added attempts, most
	// recent first.
	GetRecent(ctx context.Context, n int) ([]ExploitAttempt, error)
	// GetByPredicate returns up to n recent attempts matching pred, in
	// recency order, scanning a bounded lookahead window.
	GetByPredicate(ctx context.Context, pred func(ExploitAttempt) bool, n int) ([]ExploitAttempt, error)
	// Len reports the current number of stored attempts.
	Len(ctx context.Context) (int, error)
}

// filterRecent implements the bounded-lookahead predicate scan shared by
// every store backend.
func filterRecent(ctx context.Context, s ExperienceStore, pred func(ExploitAttempt) bool, n int) ([]ExploitAttempt, error) {
	recent, err := s.GetRecent(ctx, n*lookaheadFactor)
	if err != nil {
		return nil, err
	}

	matched := make([]ExploitAttempt, 0, n)
	for _, a := range recent {
		if pred(a) {
			matched = append(matched, a)
			if len(matched) == n {
				break
			}
		}
	}
	return matched, nil
}
