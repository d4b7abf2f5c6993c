// internal/rl/store_test.go
package rl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

func makeAttempt(i int, outcome schemas.Outcome) ExploitAttempt {
	return ExploitAttempt{
		AttemptID:         fmt.Sprintf("attempt-%d", i),
		MissionID:         "mission-001",
		Timestamp:         time.Now().UTC(),
		Target:            "192.168.1.10",
		VulnerabilityType: "RCE",
		CodeRef:           "exploit.py",
		CodeLength:        20,
		Language:          "python",
		Outcome:           outcome,
		ExecutionTime:     2.5,
	}
}

func TestMemoryStoreFIFOEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5)

	// Insert more than capacity; the oldest must be evicted first.
	for i := 0; i < 8; i++ {
		require.NoError(t, store.Add(ctx, makeAttempt(i, schemas.OutcomeSuccess)))
	}

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	recent, err := store.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 5)

	// Most recent first: 7, 6, 5, 4, 3. Attempts 0-2 are gone.
	for i, attempt := range recent {
		assert.Equal(t, fmt.Sprintf("attempt-%d", 7-i), attempt.AttemptID)
	}
}

func TestMemoryStoreEmptyReads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	recent, err := store.GetRecent(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, recent)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStoreGetByPredicateBoundedLookahead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100)

	// 20 records, alternating success and failure.
	for i := 0; i < 20; i++ {
		outcome := schemas.OutcomeFailure
		if i%2 == 0 {
			outcome = schemas.OutcomeSuccess
		}
		require.NoError(t, store.Add(ctx, makeAttempt(i, outcome)))
	}

	matches, err := store.GetByPredicate(ctx, func(a ExploitAttempt) bool {
		return a.Outcome == schemas.OutcomeSuccess
	}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 5)
	for _, m := range matches {
		assert.Equal(t, schemas.OutcomeSuccess, m.Outcome)
	}

	// Sparse matches: the scan only looks at 2n recent records and may
	// under-return.
	sparse, err := store.GetByPredicate(ctx, func(a ExploitAttempt) bool {
		return a.AttemptID == "attempt-0"
	}, 3)
	require.NoError(t, err)
	assert.Empty(t, sparse, "attempt-0 is outside the lookahead window")
}

func TestMemoryStoreConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(50)

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 25; i++ {
				_ = store.Add(ctx, makeAttempt(w*100+i, schemas.OutcomeSuccess))
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n, "capacity bound holds under concurrent writers")
}
