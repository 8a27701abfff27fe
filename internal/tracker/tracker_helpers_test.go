package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRegistry(t testing.TB, ids ...string) Registry {
	t.Helper()
	entities := make([]Entity, len(ids))
	for i, id := range ids {
		entities[i] = Entity{ID: id, Name: "Entity " + id}
	}
	registry, err := NewRegistry(entities)
	require.NoError(t, err)
	return registry
}

func okSample(id string, votes int64) Sample {
	return Sample{EntityID: id, Votes: int64Ptr(votes), Success: true}
}

func failedSample(id string) Sample {
	return Sample{EntityID: id, FailureReason: "HTTP 503"}
}

func outcomeOf(samples ...Sample) CycleOutcome {
	succeeded := 0
	for _, s := range samples {
		if s.Success {
			succeeded++
		}
	}
	return CycleOutcome{Samples: samples, Succeeded: succeeded, Total: len(samples)}
}

// fakeFetcher serves configured vote counts and records concurrency.
type fakeFetcher struct {
	mu          sync.Mutex
	votes       map[string]int64
	failing     map[string]bool
	gate        chan struct{}
	calls       int
	inFlight    int
	maxInFlight int
}

func newFakeFetcher(votes map[string]int64) *fakeFetcher {
	return &fakeFetcher{votes: votes, failing: map[string]bool{}}
}

func (f *fakeFetcher) set(id string, votes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[id] = votes
}

func (f *fakeFetcher) fail(id string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[id] = failing
}

// block makes every following fetch wait until the returned function is called.
func (f *fakeFetcher) block() func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.gate = nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func (f *fakeFetcher) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeFetcher) Fetch(ctx context.Context, entity Entity, ts time.Time) Sample {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if f.failing[entity.ID] {
		return Sample{EntityID: entity.ID, Timestamp: ts, FailureReason: "connection refused"}
	}
	v, ok := f.votes[entity.ID]
	if !ok {
		return Sample{EntityID: entity.ID, Timestamp: ts, Success: true}
	}
	return Sample{EntityID: entity.ID, Votes: int64Ptr(v), Timestamp: ts, Success: true}
}
