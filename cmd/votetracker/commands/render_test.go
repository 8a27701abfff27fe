package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"votetracker/internal/tracker"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 {
	return &v
}

func testSnapshot() tracker.Snapshot {
	last := time.Date(2024, time.August, 1, 10, 0, 0, 0, time.UTC)
	return tracker.Snapshot{
		Status:        tracker.StatusLive,
		IsTracking:    true,
		LeaderID:      "b",
		LastCycleTime: last,
		NextCycleTime: last.Add(10 * time.Second),
		Cycles:        3,
		Entities: []tracker.EntitySnapshot{
			{Entity: tracker.Entity{ID: "a", Name: "Aurora"}, Votes: ptr(1200), Views: ptr(40000), Delta: 12, Rate: 1.2, SessionDelta: 30},
			{Entity: tracker.Entity{ID: "c", Name: "Cobalt"}},
			{Entity: tracker.Entity{ID: "b", Name: "Birch"}, Votes: ptr(1500), Delta: 0, SessionDelta: 0},
		},
		Events: []tracker.Event{
			{Time: last, Level: tracker.LevelInfo, Message: "first"},
			{Time: last, Level: tracker.LevelSuccess, Message: "Updated 2/3 submissions (120ms)"},
		},
	}
}

func TestStandingsOrder(t *testing.T) {
	ordered := standings(testSnapshot())
	ids := []string{}
	for _, e := range ordered {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestRenderLeaderboard(t *testing.T) {
	out := renderLeaderboard(testSnapshot())

	require.Contains(t, out, "Birch (leader)")
	require.Contains(t, out, "1,200")
	require.Contains(t, out, "40,000")
	require.Contains(t, out, "+12")
	require.Contains(t, out, "1.20/s")
	require.Less(t, strings.Index(out, "Birch"), strings.Index(out, "Aurora"))
	require.Less(t, strings.Index(out, "Aurora"), strings.Index(out, "Cobalt"))
}

func TestRenderStatus(t *testing.T) {
	snapshot := testSnapshot()
	now := snapshot.LastCycleTime.Add(3 * time.Second)
	require.Equal(t, "Status: live | last update 10:00:00 | next in 7s | 3 cycles", renderStatus(snapshot, now))

	snapshot.IsTracking = false
	snapshot.Status = tracker.StatusStopped
	require.Equal(t, "Status: stopped | last update 10:00:00 | 3 cycles", renderStatus(snapshot, now))

	require.Equal(t, "Status: idle | 0 cycles", renderStatus(tracker.Snapshot{Status: tracker.StatusIdle}, now))
}

func TestRenderEventsKeepsLatest(t *testing.T) {
	out := renderEvents(testSnapshot().Events, 1)
	require.NotContains(t, out, "first")
	require.Contains(t, out, "success Updated 2/3 submissions (120ms)")
}

func TestRenderSnapshotWritesEverything(t *testing.T) {
	var buf bytes.Buffer
	snapshot := testSnapshot()
	renderSnapshot(&buf, snapshot, snapshot.LastCycleTime)

	out := buf.String()
	require.Contains(t, out, "SUBMISSION")
	require.Contains(t, out, "next in 10s")
	require.Contains(t, out, "Updated 2/3 submissions")
}
