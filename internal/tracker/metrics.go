package tracker

import "time"

// EntityState is the per-entity metric state carried across cycles.
type EntityState struct {
	// LastVotes is nil until the entity's first observed vote count and never goes back to nil.
	LastVotes *int64
	// SessionDelta is the sum of every positive delta since the process started.
	SessionDelta int64
	// Rate is the last computed votes per second, kept as-is on cycles with no growth.
	Rate float64
	// LastDelta is the delta computed by the most recent observation.
	LastDelta int64
	// LastViews is the most recent non-nil views count.
	LastViews *int64
}

func (s EntityState) clone() EntityState {
	s.LastVotes = copyInt64Ptr(s.LastVotes)
	s.LastViews = copyInt64Ptr(s.LastViews)
	return s
}

// MetricsResult is the outcome of folding one sample into an entity's state.
type MetricsResult struct {
	Delta int64
	Rate  float64
	State EntityState
}

// ComputeMetrics folds one successful sample into the entity's state.
//
// prevCycle is the commit time of the previous successful cycle (zero if none), curCycle the
// commit time of this one. The input state is never modified.
func ComputeMetrics(sample Sample, state EntityState, prevCycle, curCycle time.Time) MetricsResult {
	next := state.clone()

	if sample.Views != nil {
		next.LastViews = copyInt64Ptr(sample.Views)
	}
	if sample.Votes == nil {
		return MetricsResult{Delta: 0, Rate: next.Rate, State: next}
	}

	votes := *sample.Votes
	var delta int64
	if state.LastVotes != nil {
		delta = votes - *state.LastVotes
	}

	if delta > 0 {
		next.SessionDelta += delta
		next.Rate = computeRate(delta, prevCycle, curCycle)
	}
	next.LastDelta = delta
	next.LastVotes = int64Ptr(votes)

	return MetricsResult{Delta: delta, Rate: next.Rate, State: next}
}

func computeRate(delta int64, prevCycle, curCycle time.Time) float64 {
	if prevCycle.IsZero() || curCycle.IsZero() {
		return 0
	}
	elapsedSeconds := curCycle.Sub(prevCycle).Seconds()
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(delta) / elapsedSeconds
}

// SelectLeader returns the id of the entity with strictly the most votes, walking entities in
// order so the first of tied entities wins. Entities missing from votes are not considered,
// an empty string means no entity had a vote count.
func SelectLeader(entities []Entity, votes map[string]int64) string {
	leader := ""
	var best int64
	for _, e := range entities {
		v, ok := votes[e.ID]
		if !ok {
			continue
		}
		if leader == "" || v > best {
			leader = e.ID
			best = v
		}
	}
	return leader
}
