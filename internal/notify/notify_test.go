package notify

import (
	"context"
	"errors"
	"testing"

	"votetracker/internal/components/telemetry"
	"votetracker/internal/tracker"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []Message
	err      error
}

func (s *fakeSender) Send(ctx context.Context, msg Message) error {
	s.messages = append(s.messages, msg)
	return s.err
}

func ptr(v int64) *int64 {
	return &v
}

func report(leader string, votes map[string]int64) tracker.CycleReport {
	snapshot := tracker.Snapshot{LeaderID: leader}
	for _, id := range []string{"a", "b", "c"} {
		e := tracker.EntitySnapshot{Entity: tracker.Entity{ID: id, Name: "Streamer " + id}}
		if v, ok := votes[id]; ok {
			e.Votes = ptr(v)
			e.SessionDelta = v / 10
		}
		snapshot.Entities = append(snapshot.Entities, e)
	}
	return tracker.CycleReport{
		Result:   &tracker.CycleResult{LeaderID: leader},
		Snapshot: snapshot,
	}
}

func TestLeaderAlertOnlyOnChange(t *testing.T) {
	sender := &fakeSender{}
	alert := NewLeaderAlert(sender, telemetry.NewMemoryAPI())
	ctx := context.Background()

	require.NoError(t, alert.OnCycle(ctx, report("a", map[string]int64{"a": 10, "b": 5})))
	require.NoError(t, alert.OnCycle(ctx, report("a", map[string]int64{"a": 12, "b": 11})))
	require.Empty(t, sender.messages)

	require.NoError(t, alert.OnCycle(ctx, report("b", map[string]int64{"a": 12, "b": 1500})))
	require.Len(t, sender.messages, 1)
	require.Equal(t, "New leader: Streamer b", sender.messages[0].Subject)
	require.Contains(t, sender.messages[0].Body, "Streamer b overtook Streamer a.")
	require.Contains(t, sender.messages[0].Body, "1. Streamer b: 1,500 votes (+150 this session)")
	require.Contains(t, sender.messages[0].Body, "3. Streamer c: no data")
}

func TestLeaderAlertIgnoresFailuresAndEmptyLeaders(t *testing.T) {
	sender := &fakeSender{}
	alert := NewLeaderAlert(sender, telemetry.NewMemoryAPI())
	ctx := context.Background()

	require.NoError(t, alert.OnCycle(ctx, report("a", map[string]int64{"a": 1})))
	require.NoError(t, alert.OnCycle(ctx, tracker.CycleReport{Failure: &tracker.CycleFailure{Total: 3}}))
	require.NoError(t, alert.OnCycle(ctx, report("", nil)))
	require.Empty(t, sender.messages)
}

func TestLeaderAlertReturnsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	alert := NewLeaderAlert(sender, telemetry.NewMemoryAPI())
	ctx := context.Background()

	require.NoError(t, alert.OnCycle(ctx, report("a", map[string]int64{"a": 2})))
	require.ErrorContains(t, alert.OnCycle(ctx, report("b", map[string]int64{"b": 3})), "smtp down")
}
