package chrono

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeAPI is the interface that anything depending on the system clock or on timers should use.
//
// note: fault injection point, tests substitute clockwork.NewFakeClock()
type TimeAPI = clockwork.Clock

// Ticker is the repeating trigger handed out by TimeAPI.NewTicker.
type Ticker = clockwork.Ticker

// NewStandardTime is the standard implementation of TimeAPI backed by the system clock.
func NewStandardTime() TimeAPI {
	return clockwork.NewRealClock()
}

// NextTick returns the first instant strictly after now on the grid armedAt + k*interval.
// A zero armedAt or non-positive interval yields the zero time.
func NextTick(armedAt time.Time, interval time.Duration, now time.Time) time.Time {
	if armedAt.IsZero() || interval <= 0 {
		return time.Time{}
	}
	if now.Before(armedAt) {
		return armedAt
	}
	elapsed := now.Sub(armedAt)
	ticks := elapsed/interval + 1
	return armedAt.Add(ticks * interval)
}

// Remaining returns target - now clamped at zero, the value a countdown display polls.
func Remaining(target, now time.Time) time.Duration {
	if target.IsZero() {
		return 0
	}
	left := target.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
