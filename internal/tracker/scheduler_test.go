package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"votetracker/internal/components/telemetry"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type schedulerFixture struct {
	clock     clockwork.FakeClock
	fetcher   *fakeFetcher
	tracker   *Tracker
	scheduler *Scheduler
	tel       *telemetry.MemoryAPI
}

func newSchedulerFixture(t *testing.T, listeners ...Listener) schedulerFixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, time.August, 1, 10, 0, 0, 0, time.UTC))
	tel := telemetry.NewMemoryAPI()
	registry := testRegistry(t, "a", "b")
	fetcher := newFakeFetcher(map[string]int64{"a": 100, "b": 50})

	tr := NewTracker(registry, TrackerOptions{}, clock, tel)
	agg := NewAggregator(registry, fetcher, clock, tel)
	sched := NewScheduler(tr, agg, 10*time.Second, clock, tel, listeners...)

	return schedulerFixture{clock: clock, fetcher: fetcher, tracker: tr, scheduler: sched, tel: tel}
}

func (f schedulerFixture) cycles() int {
	return f.tracker.Snapshot().Cycles
}

func TestSchedulerStartRunsImmediatelyThenOnInterval(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.scheduler.Start(ctx)
	require.Eventually(t, func() bool { return f.cycles() == 1 }, time.Second, time.Millisecond)
	require.True(t, f.scheduler.IsTracking())
	require.Equal(t, 10*time.Second, f.scheduler.NextCycleIn())

	f.fetcher.set("a", 130)
	f.clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return f.cycles() == 2 }, time.Second, time.Millisecond)

	state, _ := f.tracker.EntityState("a")
	require.Equal(t, int64(30), state.SessionDelta)
	require.InDelta(t, 3.0, state.Rate, 1e-9)

	f.scheduler.Stop()
	f.scheduler.Wait()
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.scheduler.Start(ctx)
	require.Eventually(t, func() bool { return f.cycles() == 1 }, time.Second, time.Millisecond)
	next := f.tracker.NextCycleTime()

	f.scheduler.Start(ctx)
	require.Equal(t, next, f.tracker.NextCycleTime())
	require.Never(t, func() bool { return f.cycles() != 1 }, 50*time.Millisecond, 5*time.Millisecond)

	f.scheduler.Stop()
	f.scheduler.Stop()
	f.scheduler.Wait()
	require.False(t, f.scheduler.IsTracking())
	require.Equal(t, time.Duration(0), f.scheduler.NextCycleIn())

	f.clock.Advance(time.Minute)
	require.Never(t, func() bool { return f.cycles() != 1 }, 50*time.Millisecond, 5*time.Millisecond)

	stopped := 0
	for _, e := range f.tracker.Snapshot().Events {
		if e.Message == "Tracking stopped" {
			stopped++
		}
	}
	require.Equal(t, 1, stopped)
	require.Equal(t, StatusStopped, f.tracker.Snapshot().Status)
}

func TestSchedulerRefreshDoesNotShiftTicker(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.scheduler.Start(ctx)
	require.Eventually(t, func() bool { return f.cycles() == 1 }, time.Second, time.Millisecond)

	f.clock.Advance(3 * time.Second)
	report := f.scheduler.RefreshNow(ctx)
	require.NotNil(t, report.Result)
	require.True(t, report.Manual)
	require.Equal(t, 2, f.cycles())
	require.Equal(t, 7*time.Second, f.scheduler.NextCycleIn())

	f.clock.Advance(7 * time.Second)
	require.Eventually(t, func() bool { return f.cycles() == 3 }, time.Second, time.Millisecond)

	f.scheduler.Stop()
	f.scheduler.Wait()
}

func TestSchedulerRefreshWhileIdle(t *testing.T) {
	f := newSchedulerFixture(t)

	report := f.scheduler.RefreshNow(context.Background())
	require.NotNil(t, report.Result)
	require.Equal(t, "a", report.Result.LeaderID)
	require.Equal(t, 1, f.cycles())
	require.False(t, f.scheduler.IsTracking())
	require.Equal(t, StatusIdle, report.Snapshot.Status)
}

func TestSchedulerDiscardsCycleSettlingAfterStop(t *testing.T) {
	f := newSchedulerFixture(t)
	release := f.fetcher.block()

	f.scheduler.Start(context.Background())
	require.Eventually(t, func() bool { return f.fetcher.InFlight() == 2 }, time.Second, time.Millisecond)

	f.scheduler.Stop()
	release()
	f.scheduler.Wait()

	require.Equal(t, 0, f.cycles())
	require.Empty(t, f.tracker.Snapshot().History.Labels())
}

func TestSchedulerCyclesNeverOverlap(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.scheduler.Start(ctx)
	require.Eventually(t, func() bool { return f.cycles() == 1 }, time.Second, time.Millisecond)

	release := f.fetcher.block()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.scheduler.RefreshNow(ctx)
	}()
	require.Eventually(t, func() bool { return f.fetcher.InFlight() == 2 }, time.Second, time.Millisecond)

	f.clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		for _, r := range f.tel.Reports(telemetry.KindDebug) {
			if r.ID == "tick skipped, previous cycle still in flight" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	release()
	wg.Wait()

	require.Equal(t, 2, f.cycles())
	require.Equal(t, 2, f.fetcher.MaxInFlight())

	f.scheduler.Stop()
	f.scheduler.Wait()
}

func TestSchedulerAllFailedKeepsTracking(t *testing.T) {
	f := newSchedulerFixture(t)
	f.fetcher.fail("a", true)
	f.fetcher.fail("b", true)

	report := f.scheduler.RefreshNow(context.Background())
	require.NotNil(t, report.Failure)
	require.Nil(t, report.Result)
	require.ErrorIs(t, report.Failure, ErrAllRequestsFailed)
	require.Equal(t, StatusFetchFailed, report.Snapshot.Status)
	require.Equal(t, 0, report.Snapshot.History.Len())
}

func TestSchedulerNotifiesListeners(t *testing.T) {
	var mu sync.Mutex
	var reports []CycleReport
	recorder := ListenerFunc(func(ctx context.Context, report CycleReport) error {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, report)
		return nil
	})
	broken := ListenerFunc(func(ctx context.Context, report CycleReport) error {
		return errors.New("sink down")
	})

	f := newSchedulerFixture(t, recorder, broken)
	f.scheduler.RefreshNow(context.Background())

	mu.Lock()
	require.Len(t, reports, 1)
	require.Equal(t, 1, reports[0].Snapshot.Cycles)
	mu.Unlock()

	brokenReports := f.tel.Reports(telemetry.KindBroken)
	require.Len(t, brokenReports, 1)
	require.Equal(t, "scheduler.listener", brokenReports[0].ID)
}
