package chatview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func messageAt(id, sender string, at time.Time) Message {
	return Message{ID: id, SenderID: sender, ReceiverID: "peer", Content: "hello " + id, CreatedAt: at}
}

func renderedIDs(items []DisplayItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind == KindMessage {
			ids = append(ids, item.Message.ID)
		}
	}
	return ids
}

func TestRenderDeduplicatesConfirmedWins(t *testing.T) {
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	confirmed := []Message{messageAt("41", "alice", base)}
	optimistic := []Message{
		{ID: "41", SenderID: "alice", ReceiverID: "peer", Content: "stale optimistic copy", CreatedAt: base},
		messageAt(TempIDPrefix+"abc", "alice", base.Add(time.Second)),
	}

	items := Render(confirmed, optimistic, time.UTC)

	require.Equal(t, []string{"41", TempIDPrefix + "abc"}, renderedIDs(items))
	for _, item := range items {
		if item.Kind == KindMessage && item.Message.ID == "41" {
			require.Equal(t, "hello 41", item.Message.Content, "confirmed copy must win the id collision")
			require.False(t, item.Pending)
		}
		if item.Kind == KindMessage && item.Message.ID == TempIDPrefix+"abc" {
			require.True(t, item.Pending)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	base := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	confirmed := []Message{messageAt("1", "alice", base), messageAt("2", "bob", base.Add(time.Minute))}
	optimistic := []Message{messageAt(TempIDPrefix+"x", "alice", base.Add(2*time.Minute))}

	first := Render(confirmed, optimistic, time.UTC)
	second := Render(confirmed, optimistic, time.UTC)

	require.Equal(t, first, second)
}

func TestRenderOrdersAcrossSources(t *testing.T) {
	base := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	confirmed := []Message{
		messageAt("10", "bob", base.Add(2*time.Minute)),
		messageAt("11", "bob", base.Add(6*time.Minute)),
	}
	optimistic := []Message{
		messageAt(TempIDPrefix+"a", "alice", base.Add(4*time.Minute)),
		messageAt(TempIDPrefix+"b", "alice", base.Add(8*time.Minute)),
	}

	items := Render(confirmed, optimistic, time.UTC)

	require.Equal(t, []string{"10", TempIDPrefix + "a", "11", TempIDPrefix + "b"}, renderedIDs(items))
}

func TestRenderTieBreakKeepsConfirmedFirst(t *testing.T) {
	at := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	confirmed := []Message{messageAt("1", "alice", at)}
	optimistic := []Message{messageAt(TempIDPrefix+"same-instant", "bob", at)}

	items := Render(confirmed, optimistic, time.UTC)

	require.Equal(t, []string{"1", TempIDPrefix + "same-instant"}, renderedIDs(items))
}

func TestRenderDateDividersUseLocalCalendarDays(t *testing.T) {
	loc := mustLocation(t, "America/New_York")

	// 03:30 UTC and 16:00 UTC fall on the same UTC day but different local
	// days in UTC-5; the divider count must follow the local calendar.
	lateNight := time.Date(2026, time.January, 7, 3, 30, 0, 0, time.UTC)  // Jan 6, 22:30 local
	nextMorning := time.Date(2026, time.January, 7, 16, 0, 0, 0, time.UTC) // Jan 7, 11:00 local

	items := Render([]Message{
		messageAt("1", "alice", lateNight),
		messageAt("2", "bob", nextMorning),
	}, nil, loc)

	require.Len(t, items, 4)
	require.Equal(t, KindDateDivider, items[0].Kind)
	require.Equal(t, "January 6, 2026", items[0].Label)
	require.Equal(t, KindMessage, items[1].Kind)
	require.Equal(t, KindDateDivider, items[2].Kind)
	require.Equal(t, "January 7, 2026", items[2].Label)
	require.Equal(t, KindMessage, items[3].Kind)
}

func TestRenderEmptyInputs(t *testing.T) {
	require.Empty(t, Render(nil, nil, time.UTC))
}

func TestSupersedesMatchesWithinWindow(t *testing.T) {
	at := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	optimistic := Message{ID: TempIDPrefix + "1", SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: at}

	confirmed := Message{ID: "99", SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: at.Add(30 * time.Second)}
	require.True(t, Supersedes(confirmed, optimistic))

	tooLate := confirmed
	tooLate.CreatedAt = at.Add(SupersedeWindow + time.Second)
	require.False(t, Supersedes(tooLate, optimistic))

	otherContent := confirmed
	otherContent.Content = "different"
	require.False(t, Supersedes(otherContent, optimistic))

	require.False(t, Supersedes(confirmed, Message{ID: "already-confirmed", SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: at}))
}

func TestNewestChangedControlsAutoScroll(t *testing.T) {
	base := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	first := Render([]Message{messageAt("1", "alice", base)}, nil, time.UTC)
	require.True(t, NewestChanged(nil, first), "first message should trigger a scroll")
	require.False(t, NewestChanged(first, first), "re-render with same tail must not scroll")

	second := Render([]Message{
		messageAt("1", "alice", base),
		messageAt("2", "bob", base.Add(time.Minute)),
	}, nil, time.UTC)
	require.True(t, NewestChanged(first, second))

	require.False(t, NewestChanged(first, nil), "emptied view never scrolls")
}
