package tracker

import "time"

type EventLevel string

const (
	LevelInfo    EventLevel = "info"
	LevelSuccess EventLevel = "success"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// Event is one line of the chronological event log.
type Event struct {
	Time    time.Time
	Level   EventLevel
	Message string
}

const defaultEventLogSize = 200

// eventLog keeps the most recent events, oldest first.
type eventLog struct {
	size   int
	events []Event
}

func newEventLog(size int) *eventLog {
	if size <= 0 {
		size = defaultEventLogSize
	}
	return &eventLog{size: size}
}

func (l *eventLog) add(e Event) {
	l.events = append(l.events, e)
	if overflow := len(l.events) - l.size; overflow > 0 {
		l.events = append([]Event(nil), l.events[overflow:]...)
	}
}

func (l *eventLog) list() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
