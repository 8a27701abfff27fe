package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sample is one entity's raw observation for one cycle.
//
// Votes and Views are nil when the field could not be extracted. Success is false only
// when the fetch itself failed, a reachable page with missing counts is still a success.
type Sample struct {
	EntityID      string
	Votes         *int64
	Views         *int64
	Timestamp     time.Time
	Success       bool
	FailureReason string
}

// Fetcher performs one fetch for one entity. Implementations never fail past this
// boundary, transport problems are reported through a Sample with Success=false.
type Fetcher interface {
	Fetch(ctx context.Context, entity Entity, cycleTimestamp time.Time) Sample
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, entity Entity, cycleTimestamp time.Time) Sample

func (f FetcherFunc) Fetch(ctx context.Context, entity Entity, cycleTimestamp time.Time) Sample {
	return f(ctx, entity, cycleTimestamp)
}

// CycleOutcome is the settled result of one fan-out, before any state is touched.
type CycleOutcome struct {
	Started   time.Time
	Samples   []Sample
	Succeeded int
	Total     int
	Duration  time.Duration
}

// ErrAllRequestsFailed is matched by every *CycleFailure.
var ErrAllRequestsFailed = errors.New("all requests failed")

// CycleFailure is returned when no entity in a cycle could be fetched.
// The samples are kept so callers can still log each failure.
type CycleFailure struct {
	Started  time.Time
	Samples  []Sample
	Total    int
	Duration time.Duration
}

func (f *CycleFailure) Error() string {
	return fmt.Sprintf("cycle failed: %s (0/%d)", ErrAllRequestsFailed.Error(), f.Total)
}

func (f *CycleFailure) Is(target error) bool {
	return target == ErrAllRequestsFailed
}

func int64Ptr(v int64) *int64 {
	return &v
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return int64Ptr(*p)
}
