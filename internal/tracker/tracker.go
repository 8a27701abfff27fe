package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/chrono"
	"votetracker/internal/components/telemetry"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusLive        Status = "live"
	StatusFetchFailed Status = "fetch failed"
	StatusStopped     Status = "stopped"
)

// EntityMetrics is what one cycle produced for one successfully fetched entity.
type EntityMetrics struct {
	Votes *int64
	Views *int64
	Delta int64
	Rate  float64
}

// CycleResult is a committed cycle.
type CycleResult struct {
	Timestamp time.Time
	// LeaderID is the leader of this cycle alone, empty when no entity reported votes.
	LeaderID  string
	PerEntity map[string]EntityMetrics
	Samples   []Sample
	Succeeded int
	Total     int
	Duration  time.Duration
}

// EntitySnapshot is the presentation view of one entity.
type EntitySnapshot struct {
	Entity
	Votes        *int64
	Views        *int64
	Delta        int64
	Rate         float64
	SessionDelta int64
}

// Snapshot is a deep copy of the tracker state, safe to hold on to and render.
type Snapshot struct {
	Status        Status
	IsTracking    bool
	LeaderID      string
	LastCycleTime time.Time
	NextCycleTime time.Time
	Cycles        int
	Entities      []EntitySnapshot
	History       *History
	Events        []Event
}

// Entity returns the snapshot of the given entity.
func (s Snapshot) Entity(id string) (EntitySnapshot, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntitySnapshot{}, false
}

type TrackerOptions struct {
	// Window is the number of cycles kept in history, DefaultWindow if zero.
	Window int
	// EventLogSize is the number of events kept, 200 if zero.
	EventLogSize int
}

// Tracker owns every piece of mutable tracking state. All mutation happens in Apply,
// RecordFailure and the tracking transitions, each under a single lock.
type Tracker struct {
	registry Registry
	clock    chrono.TimeAPI
	tel      telemetry.API

	mu        sync.Mutex
	states    map[string]EntityState
	history   *History
	events    *eventLog
	leader    string
	lastCycle time.Time
	cycles    int
	status    Status
	tracking  bool
	armedAt   time.Time
	interval  time.Duration
}

func NewTracker(registry Registry, options TrackerOptions, clock chrono.TimeAPI, tel telemetry.API) *Tracker {
	assert.NotNil(clock)
	assert.NotNil(tel)

	states := make(map[string]EntityState, registry.Len())
	for _, e := range registry.Entities() {
		states[e.ID] = EntityState{}
	}

	return &Tracker{
		registry: registry,
		clock:    clock,
		tel:      tel,
		states:   states,
		history:  NewHistory(options.Window, registry.Entities()),
		events:   newEventLog(options.EventLogSize),
		status:   StatusIdle,
	}
}

func (t *Tracker) Registry() Registry {
	return t.registry
}

func (t *Tracker) logf(level EventLevel, format string, args ...any) {
	t.events.add(Event{
		Time:    t.clock.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// Log appends a line to the event log.
func (t *Tracker) Log(level EventLevel, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logf(level, format, args...)
}

func (t *Tracker) logSampleFailures(samples []Sample) {
	for _, s := range samples {
		if s.Success {
			continue
		}
		entity, _ := t.registry.Get(s.EntityID)
		t.logf(LevelError, "%s: %s", entity.Name, s.FailureReason)
	}
}

// Apply commits a cycle with at least one successful sample: metrics for every successful
// entity, one history label, leader selection and the event log.
func (t *Tracker) Apply(ctx context.Context, outcome CycleOutcome) CycleResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	prev := t.lastCycle

	perEntity := make(map[string]EntityMetrics, outcome.Succeeded)
	observed := make(map[string]int64, outcome.Succeeded)
	for _, sample := range outcome.Samples {
		if !sample.Success {
			continue
		}
		state, ok := t.states[sample.EntityID]
		if !ok {
			continue
		}

		res := ComputeMetrics(sample, state, prev, now)
		t.states[sample.EntityID] = res.State
		perEntity[sample.EntityID] = EntityMetrics{
			Votes: copyInt64Ptr(sample.Votes),
			Views: copyInt64Ptr(sample.Views),
			Delta: res.Delta,
			Rate:  res.Rate,
		}
		if sample.Votes != nil {
			observed[sample.EntityID] = *sample.Votes
			votesGauge.Record(ctx, *sample.Votes, metricEntity(sample.EntityID))
			sessionDeltaGauge.Record(ctx, res.State.SessionDelta, metricEntity(sample.EntityID))
		}
	}

	fallback := make(map[string]*int64, len(t.states))
	for id, state := range t.states {
		fallback[id] = state.LastVotes
	}
	t.history.Append(now, observed, fallback)

	leader := SelectLeader(t.registry.Entities(), observed)
	if leader != "" {
		t.leader = leader
	}
	t.lastCycle = now
	t.cycles++
	if t.tracking {
		t.status = StatusLive
	}

	t.logSampleFailures(outcome.Samples)
	t.logf(LevelSuccess, "Updated %d/%d submissions (%dms)", outcome.Succeeded, outcome.Total, outcome.Duration.Milliseconds())
	t.tel.ReportCount(report_tracker_succeeded, int64(outcome.Succeeded))
	cycleCounter.Add(ctx, 1)
	cycleDuration.Record(ctx, float64(outcome.Duration.Milliseconds()))

	samples := make([]Sample, len(outcome.Samples))
	copy(samples, outcome.Samples)

	return CycleResult{
		Timestamp: now,
		LeaderID:  leader,
		PerEntity: perEntity,
		Samples:   samples,
		Succeeded: outcome.Succeeded,
		Total:     outcome.Total,
		Duration:  outcome.Duration,
	}
}

// RecordFailure logs a failed cycle without touching any metric or history state.
func (t *Tracker) RecordFailure(ctx context.Context, failure *CycleFailure) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = StatusFetchFailed
	t.logSampleFailures(failure.Samples)
	t.logf(LevelError, "Fetch failed: %s", ErrAllRequestsFailed.Error())
	t.tel.ReportCount(report_tracker_failed, int64(failure.Total))
	cycleCounter.Add(ctx, 1)
}

// SetTracking records a tracking transition. armedAt and interval describe the ticker grid
// used to compute the next cycle time while tracking.
func (t *Tracker) SetTracking(tracking bool, armedAt time.Time, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracking = tracking
	if tracking {
		t.armedAt = armedAt
		t.interval = interval
		t.status = StatusLive
		t.logf(LevelInfo, "Tracking started, refreshing every %s", interval)
		return
	}
	t.armedAt = time.Time{}
	t.interval = 0
	t.status = StatusStopped
	t.logf(LevelWarning, "Tracking stopped")
}

// NextCycleTime is the next scheduled tick, zero while idle.
func (t *Tracker) NextCycleTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextCycleTime()
}

func (t *Tracker) nextCycleTime() time.Time {
	if !t.tracking {
		return time.Time{}
	}
	return chrono.NextTick(t.armedAt, t.interval, t.clock.Now())
}

// EntityState returns a copy of the entity's metric state.
func (t *Tracker) EntityState(id string) (EntityState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[id]
	return state.clone(), ok
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	entities := t.registry.Entities()
	out := make([]EntitySnapshot, len(entities))
	for i, e := range entities {
		state := t.states[e.ID]
		out[i] = EntitySnapshot{
			Entity:       e,
			Votes:        copyInt64Ptr(state.LastVotes),
			Views:        copyInt64Ptr(state.LastViews),
			Delta:        state.LastDelta,
			Rate:         state.Rate,
			SessionDelta: state.SessionDelta,
		}
	}

	return Snapshot{
		Status:        t.status,
		IsTracking:    t.tracking,
		LeaderID:      t.leader,
		LastCycleTime: t.lastCycle,
		NextCycleTime: t.nextCycleTime(),
		Cycles:        t.cycles,
		Entities:      out,
		History:       t.history.Clone(),
		Events:        t.events.list(),
	}
}
