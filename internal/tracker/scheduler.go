package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/chrono"
	"votetracker/internal/components/telemetry"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 10 * time.Second

// CycleReport is handed to every listener after a cycle settles. Exactly one of Result and
// Failure is set.
type CycleReport struct {
	Manual   bool
	Result   *CycleResult
	Failure  *CycleFailure
	Snapshot Snapshot
}

// Listener is notified after every committed cycle, periodic or manual.
type Listener interface {
	OnCycle(ctx context.Context, report CycleReport) error
}

type ListenerFunc func(ctx context.Context, report CycleReport) error

func (f ListenerFunc) OnCycle(ctx context.Context, report CycleReport) error {
	return f(ctx, report)
}

// Scheduler drives the aggregator on a fixed interval and on demand.
//
// Cycles never overlap: a tick that fires while a cycle is in flight is skipped, a manual
// refresh waits for the running cycle and then runs its own.
type Scheduler struct {
	tracker    *Tracker
	aggregator Aggregator
	clock      chrono.TimeAPI
	tel        telemetry.API
	interval   time.Duration
	listeners  []Listener

	cycleMu sync.Mutex

	mu         sync.Mutex
	tracking   bool
	generation uint64
	stop       chan struct{}
	ticker     chrono.Ticker

	wg sync.WaitGroup
}

func NewScheduler(
	tracker *Tracker,
	aggregator Aggregator,
	interval time.Duration,
	clock chrono.TimeAPI,
	tel telemetry.API,
	listeners ...Listener,
) *Scheduler {
	assert.NotNil(tracker)
	assert.NotNil(clock)
	assert.NotNil(tel)
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		tracker:    tracker,
		aggregator: aggregator,
		clock:      clock,
		tel:        tel,
		interval:   interval,
		listeners:  listeners,
	}
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) IsTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// Start begins tracking: one cycle immediately, then one per interval. It is a no-op while
// already tracking. ctx bounds the fetches of every cycle, cancelling it ends the loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracking {
		return
	}

	s.tracking = true
	s.generation++
	s.stop = make(chan struct{})
	s.ticker = s.clock.NewTicker(s.interval)
	s.tracker.SetTracking(true, s.clock.Now(), s.interval)

	s.wg.Add(1)
	go s.loop(ctx, s.generation, s.ticker, s.stop)
}

// Stop ends tracking and disarms the ticker, it is idempotent. A cycle already in flight
// keeps running but its result is discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracking {
		return
	}

	s.tracking = false
	s.ticker.Stop()
	close(s.stop)
	s.tracker.SetTracking(false, time.Time{}, 0)
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RefreshNow runs one cycle immediately whether or not tracking is on, without moving the
// ticker. It waits for an in-flight cycle to finish first.
func (s *Scheduler) RefreshNow(ctx context.Context) CycleReport {
	s.tracker.Log(LevelInfo, "Manual refresh triggered")

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	report, _ := s.runCycle(ctx, 0, true)
	return report
}

// NextCycleIn returns the time left until the next scheduled cycle, zero while idle.
func (s *Scheduler) NextCycleIn() time.Duration {
	return chrono.Remaining(s.tracker.NextCycleTime(), s.clock.Now())
}

func (s *Scheduler) loop(ctx context.Context, generation uint64, ticker chrono.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.cycleMu.Lock()
	s.runCycle(ctx, generation, false)
	s.cycleMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.generation == generation && s.tracking {
				s.tracking = false
				s.ticker.Stop()
				close(s.stop)
				s.tracker.SetTracking(false, time.Time{}, 0)
			}
			s.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.Chan():
			s.tick(ctx, generation)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, generation uint64) {
	if !s.current(generation) {
		return
	}
	if !s.cycleMu.TryLock() {
		s.tel.ReportDebug("tick skipped, previous cycle still in flight")
		return
	}
	defer s.cycleMu.Unlock()
	s.runCycle(ctx, generation, false)
}

func (s *Scheduler) current(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking && s.generation == generation
}

// runCycle must be called with cycleMu held. The returned bool is false when the result was
// discarded because tracking stopped while the cycle was in flight.
func (s *Scheduler) runCycle(ctx context.Context, generation uint64, manual bool) (CycleReport, bool) {
	if !manual && !s.current(generation) {
		return CycleReport{}, false
	}

	outcome, err := s.aggregator.RunCycle(ctx)

	report := CycleReport{Manual: manual}

	s.mu.Lock()
	if !manual && !(s.tracking && s.generation == generation) {
		s.mu.Unlock()
		s.tel.ReportDebug("discarding cycle that settled after stop")
		return CycleReport{}, false
	}

	var failure *CycleFailure
	switch {
	case err == nil:
		result := s.tracker.Apply(ctx, outcome)
		report.Result = &result
	case errors.As(err, &failure):
		s.tracker.RecordFailure(ctx, failure)
		report.Failure = failure
	default:
		s.mu.Unlock()
		s.tel.ReportBroken(report_scheduler_cycle, err)
		return CycleReport{}, false
	}
	s.mu.Unlock()

	report.Snapshot = s.tracker.Snapshot()
	s.notify(ctx, report)
	return report, true
}

func (s *Scheduler) notify(ctx context.Context, report CycleReport) {
	var errs []error
	for i, l := range s.listeners {
		if err := l.OnCycle(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("listener %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.tel.ReportBroken(report_scheduler_listen, err)
	}
}
