package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"votetracker/internal/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const recentEvents = 5

var printer = message.NewPrinter(language.English)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if w != nil {
		t.SetOutputMirror(w)
	}
	return t
}

func formatCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%d", *v)
}

func formatDelta(v int64) string {
	if v == 0 {
		return "0"
	}
	return printer.Sprintf("%+d", v)
}

// standings orders entities by votes, entities without data last.
func standings(snapshot tracker.Snapshot) []tracker.EntitySnapshot {
	out := make([]tracker.EntitySnapshot, len(snapshot.Entities))
	copy(out, snapshot.Entities)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Votes, out[j].Votes
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return out
}

func renderLeaderboard(snapshot tracker.Snapshot) string {
	t := newTable(nil)
	t.AppendHeader(table.Row{"#", "Submission", "Votes", "Views", "Delta", "Rate", "Session"})
	for i, e := range standings(snapshot) {
		name := e.Name
		if e.ID == snapshot.LeaderID {
			name += " (leader)"
		}
		t.AppendRow(table.Row{
			i + 1,
			name,
			formatCount(e.Votes),
			formatCount(e.Views),
			formatDelta(e.Delta),
			fmt.Sprintf("%.2f/s", e.Rate),
			formatDelta(e.SessionDelta),
		})
	}
	return t.Render()
}

func renderStatus(snapshot tracker.Snapshot, now time.Time) string {
	parts := []string{fmt.Sprintf("Status: %s", snapshot.Status)}
	if !snapshot.LastCycleTime.IsZero() {
		parts = append(parts, fmt.Sprintf("last update %s", snapshot.LastCycleTime.Format(time.TimeOnly)))
	}
	if snapshot.IsTracking && !snapshot.NextCycleTime.IsZero() {
		left := snapshot.NextCycleTime.Sub(now)
		if left < 0 {
			left = 0
		}
		parts = append(parts, fmt.Sprintf("next in %ds", int(left.Round(time.Second).Seconds())))
	}
	parts = append(parts, fmt.Sprintf("%d cycles", snapshot.Cycles))
	return strings.Join(parts, " | ")
}

func renderEvents(events []tracker.Event, limit int) string {
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	var out strings.Builder
	for _, e := range events {
		fmt.Fprintf(&out, "[%s] %-7s %s\n", e.Time.Format(time.TimeOnly), e.Level, e.Message)
	}
	return out.String()
}

// renderSnapshot writes the whole dashboard: leaderboard, status line and the latest events.
func renderSnapshot(w io.Writer, snapshot tracker.Snapshot, now time.Time) {
	fmt.Fprintln(w, renderLeaderboard(snapshot))
	fmt.Fprintln(w, renderStatus(snapshot, now))
	fmt.Fprint(w, renderEvents(snapshot.Events, recentEvents))
}
