package chatview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBufferAddAssignsTempID(t *testing.T) {
	buffer := NewBuffer()

	staged := buffer.Add(Message{SenderID: "alice", ReceiverID: "bob", Content: "hi"})

	require.True(t, strings.HasPrefix(staged.ID, TempIDPrefix))
	require.False(t, staged.CreatedAt.IsZero())
	require.Equal(t, 1, buffer.Len())
	require.True(t, staged.Pending())
}

func TestBufferFailClearsPending(t *testing.T) {
	buffer := NewBuffer()
	staged := buffer.Add(Message{SenderID: "alice", ReceiverID: "bob", Content: "hi"})

	require.True(t, buffer.Fail(staged.ID))
	require.False(t, buffer.Fail("unknown"))

	snapshot := buffer.Snapshot()
	require.Len(t, snapshot, 1)
	require.True(t, snapshot[0].Failed)
	require.False(t, snapshot[0].Pending(), "failed messages must not render as pending")
}

func TestBufferReconcileRetiresByClientRef(t *testing.T) {
	buffer := NewBuffer()
	staged := buffer.Add(Message{SenderID: "alice", ReceiverID: "bob", Content: "hi"})
	kept := buffer.Add(Message{SenderID: "alice", ReceiverID: "bob", Content: "still waiting"})

	confirmed := []Message{{ID: "7", SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: staged.CreatedAt}}
	removed := buffer.Reconcile(confirmed, map[string]string{"7": staged.ID})

	require.Equal(t, 1, removed)
	snapshot := buffer.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, kept.ID, snapshot[0].ID)
}

func TestBufferReconcileFallsBackToSupersedes(t *testing.T) {
	buffer := NewBuffer()
	at := time.Now()
	staged := buffer.Add(Message{SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: at})

	// Ack lost its client reference; match on participants and content.
	confirmed := []Message{{ID: "8", SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: at.Add(time.Second)}}
	removed := buffer.Reconcile(confirmed, nil)

	require.Equal(t, 1, removed)
	require.Equal(t, 0, buffer.Len())
	require.False(t, buffer.Remove(staged.ID))
}
