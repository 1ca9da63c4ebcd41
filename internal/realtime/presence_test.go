package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *PresenceStore {
	t.Helper()
	return NewPresenceStore(nil, "", nil, time.Minute, zerolog.Nop())
}

func wirePayload(t *testing.T, source, kind string, users ...string) []byte {
	t.Helper()
	payload, err := json.Marshal(presenceWireEvent{Source: source, Kind: kind, Users: users, SentAt: time.Now().UTC()})
	require.NoError(t, err)
	return payload
}

func TestTrackUnionsSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	releaseTab1 := store.Track(ctx, "alice")
	releaseTab2 := store.Track(ctx, "alice")
	require.True(t, store.IsOnline("alice"))

	releaseTab1()
	require.True(t, store.IsOnline("alice"), "one remaining session keeps the user online")
	require.Nil(t, store.LastActive("alice"))

	releaseTab2()
	require.False(t, store.IsOnline("alice"))
	require.NotNil(t, store.LastActive("alice"), "final leave stamps last seen")

	// Release is idempotent; a second call must not corrupt the refcount.
	releaseTab2()
	release3 := store.Track(ctx, "alice")
	require.True(t, store.IsOnline("alice"))
	release3()
	require.False(t, store.IsOnline("alice"))
}

func TestSubscribeFiltersWatchedUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := store.Subscribe("alice")
	defer sub.Close()

	releaseAlice := store.Track(ctx, "alice")
	releaseBob := store.Track(ctx, "bob")

	select {
	case event := <-sub.Events():
		require.Equal(t, "alice", event.UserID)
		require.True(t, event.Online)
	default:
		t.Fatal("expected a join event for alice")
	}

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event for unwatched user %q", event.UserID)
	default:
	}

	releaseAlice()
	select {
	case event := <-sub.Events():
		require.Equal(t, "alice", event.UserID)
		require.False(t, event.Online)
		require.False(t, event.LastSeen.IsZero())
	default:
		t.Fatal("expected a leave event for alice")
	}

	releaseBob()
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	sub := store.Subscribe("alice")
	sub.Close()
	sub.Close()

	_, open := <-sub.Events()
	require.False(t, open)
}

func TestRemoteJoinAndLeave(t *testing.T) {
	store := newTestStore(t)

	store.handleWireEvent(wirePayload(t, "node-b", presenceKindJoin, "carol"))
	require.True(t, store.IsOnline("carol"))

	store.handleWireEvent(wirePayload(t, "node-b", presenceKindLeave, "carol"))
	require.False(t, store.IsOnline("carol"))
	require.NotNil(t, store.LastActive("carol"))
}

func TestRemoteSyncReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)

	store.handleWireEvent(wirePayload(t, "node-b", presenceKindSync, "carol", "dave"))
	require.True(t, store.IsOnline("carol"))
	require.True(t, store.IsOnline("dave"))

	// The next sync omits dave: replacement semantics must take him offline
	// even though no explicit leave was ever sent.
	store.handleWireEvent(wirePayload(t, "node-b", presenceKindSync, "carol"))
	require.True(t, store.IsOnline("carol"))
	require.False(t, store.IsOnline("dave"))
	require.NotNil(t, store.LastActive("dave"))
}

func TestRemoteSyncScopedToSource(t *testing.T) {
	store := newTestStore(t)

	store.handleWireEvent(wirePayload(t, "node-b", presenceKindSync, "carol"))
	store.handleWireEvent(wirePayload(t, "node-c", presenceKindSync, "carol"))

	// node-b drops carol but node-c still has her.
	store.handleWireEvent(wirePayload(t, "node-b", presenceKindSync))
	require.True(t, store.IsOnline("carol"), "a sync from one node must not clear another node's members")

	store.handleWireEvent(wirePayload(t, "node-c", presenceKindSync))
	require.False(t, store.IsOnline("carol"))
}

func TestLocalSessionShadowsRemoteLeave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release := store.Track(ctx, "alice")
	store.handleWireEvent(wirePayload(t, "node-b", presenceKindJoin, "alice"))
	store.handleWireEvent(wirePayload(t, "node-b", presenceKindLeave, "alice"))

	require.True(t, store.IsOnline("alice"), "local session keeps the user online through remote leaves")
	require.Nil(t, store.LastActive("alice"), "no last seen while still online somewhere")

	release()
	require.False(t, store.IsOnline("alice"))
}

func TestOwnEventsAreIgnored(t *testing.T) {
	store := newTestStore(t)

	store.handleWireEvent(wirePayload(t, store.nodeID, presenceKindJoin, "alice"))
	require.False(t, store.IsOnline("alice"))
}

func TestChannelKeyIsOrderIndependent(t *testing.T) {
	require.Equal(t, ChannelKey("alice", "bob"), ChannelKey("bob", "alice"))
	require.Equal(t, "dm:alice:bob", ChannelKey(" bob ", "alice"))
}
