package tracker

import (
	"time"
)

// DefaultWindow is the number of cycles retained when no window is configured.
const DefaultWindow = 20

// Point is one value in an entity's series.
type Point struct {
	Votes int64
	// Observed is false when Votes is a fill value (last known or zero) for a cycle in which
	// the entity was not observed.
	Observed bool
}

// History is a sliding window of cycles: one shared label axis and one series per entity,
// all of the same length and never longer than the window.
//
// History is not safe for concurrent use, Tracker guards it.
type History struct {
	window int
	order  []string
	labels []time.Time
	series map[string][]Point
}

func NewHistory(window int, entities []Entity) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	h := &History{
		window: window,
		order:  make([]string, len(entities)),
		series: make(map[string][]Point, len(entities)),
	}
	for i, e := range entities {
		h.order[i] = e.ID
		h.series[e.ID] = nil
	}
	return h
}

// Append adds one label and one point per tracked entity, then evicts the oldest entries
// until the window holds.
//
// observed carries the vote counts seen this cycle. Entities missing from it are filled from
// fallback (the last known count) or zero.
func (h *History) Append(label time.Time, observed map[string]int64, fallback map[string]*int64) {
	h.labels = append(h.labels, label)
	for _, id := range h.order {
		point := Point{}
		if v, ok := observed[id]; ok {
			point = Point{Votes: v, Observed: true}
		} else if last := fallback[id]; last != nil {
			point = Point{Votes: *last}
		}
		h.series[id] = append(h.series[id], point)
	}
	h.evict()
}

func (h *History) evict() {
	overflow := len(h.labels) - h.window
	if overflow <= 0 {
		return
	}
	h.labels = append([]time.Time(nil), h.labels[overflow:]...)
	for id, points := range h.series {
		h.series[id] = append([]Point(nil), points[overflow:]...)
	}
}

func (h *History) Window() int {
	return h.window
}

func (h *History) Len() int {
	return len(h.labels)
}

func (h *History) Labels() []time.Time {
	out := make([]time.Time, len(h.labels))
	copy(out, h.labels)
	return out
}

// Points returns a copy of the entity's series, nil for an unknown entity.
func (h *History) Points(id string) []Point {
	points, ok := h.series[id]
	if !ok {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

// Series returns the entity's vote counts, including fill values.
func (h *History) Series(id string) []int64 {
	points, ok := h.series[id]
	if !ok {
		return nil
	}
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Votes
	}
	return out
}

// Clone returns a deep copy.
func (h *History) Clone() *History {
	out := &History{
		window: h.window,
		order:  append([]string(nil), h.order...),
		labels: h.Labels(),
		series: make(map[string][]Point, len(h.series)),
	}
	for id := range h.series {
		out.series[id] = h.Points(id)
	}
	return out
}
