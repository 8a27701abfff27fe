package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"votetracker/internal/components/telemetry"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestAggregatorPartialSuccess(t *testing.T) {
	registry := testRegistry(t, "a", "b", "c")
	fetcher := newFakeFetcher(map[string]int64{"a": 1, "b": 2, "c": 3})
	fetcher.fail("b", true)
	tel := telemetry.NewMemoryAPI()

	agg := NewAggregator(registry, fetcher, clockwork.NewFakeClock(), tel)
	outcome, err := agg.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, outcome.Succeeded)
	require.Equal(t, 3, outcome.Total)
	require.Len(t, outcome.Samples, 3)
	for i, id := range []string{"a", "b", "c"} {
		require.Equal(t, id, outcome.Samples[i].EntityID)
	}
	require.False(t, outcome.Samples[1].Success)
	require.Equal(t, "connection refused", outcome.Samples[1].FailureReason)
	require.Len(t, tel.Reports(telemetry.KindWarning), 1)
	require.Equal(t, 3, fetcher.Calls())
}

func TestAggregatorAllFailed(t *testing.T) {
	registry := testRegistry(t, "a", "b")
	fetcher := newFakeFetcher(map[string]int64{})
	fetcher.fail("a", true)
	fetcher.fail("b", true)

	agg := NewAggregator(registry, fetcher, clockwork.NewFakeClock(), telemetry.NewMemoryAPI())
	_, err := agg.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrAllRequestsFailed)

	var failure *CycleFailure
	require.True(t, errors.As(err, &failure))
	require.Equal(t, 2, failure.Total)
	require.Len(t, failure.Samples, 2)
}

func TestAggregatorFetchesConcurrently(t *testing.T) {
	registry := testRegistry(t, "a", "b", "c", "d")
	fetcher := newFakeFetcher(map[string]int64{"a": 1, "b": 1, "c": 1, "d": 1})
	release := fetcher.block()

	agg := NewAggregator(registry, fetcher, clockwork.NewFakeClock(), telemetry.NewMemoryAPI())
	done := make(chan CycleOutcome)
	go func() {
		outcome, _ := agg.RunCycle(context.Background())
		done <- outcome
	}()

	require.Eventually(t, func() bool { return fetcher.InFlight() == 4 }, time.Second, time.Millisecond)
	release()

	outcome := <-done
	require.Equal(t, 4, outcome.Succeeded)
	require.Equal(t, 4, fetcher.MaxInFlight())
}

func TestAggregatorRecoversFetcherPanic(t *testing.T) {
	registry := testRegistry(t, "a", "b")
	tel := telemetry.NewMemoryAPI()
	fetcher := FetcherFunc(func(ctx context.Context, entity Entity, ts time.Time) Sample {
		if entity.ID == "a" {
			panic("boom")
		}
		return Sample{Votes: int64Ptr(7), Success: true}
	})

	agg := NewAggregator(registry, fetcher, clockwork.NewFakeClock(), tel)
	outcome, err := agg.RunCycle(context.Background())
	require.NoError(t, err)
	require.False(t, outcome.Samples[0].Success)
	require.Contains(t, outcome.Samples[0].FailureReason, "boom")
	require.Equal(t, "b", outcome.Samples[1].EntityID)
	require.Len(t, tel.Reports(telemetry.KindBroken), 1)
}
