// Package realtime implements the presence and typing channels shared by the
// messaging surface: who is online, when they were last seen, and who is
// currently composing a message.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/observability"
)

const (
	presenceEventBuffer   = 16
	presenceMirrorPrefix  = "presence:online:"
	presenceLastSeenKey   = "presence:lastseen:"
	defaultHeartbeatEvery = 30 * time.Second
)

// Presence event kinds exchanged between nodes.
const (
	presenceKindJoin  = "join"
	presenceKindLeave = "leave"
	presenceKindSync  = "sync"
)

// PresenceEvent notifies a subscriber that a watched user changed state.
type PresenceEvent struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen,omitempty"`
	At       time.Time `json:"at"`
}

type presenceWireEvent struct {
	Source string    `json:"source"`
	Kind   string    `json:"kind"`
	Users  []string  `json:"users"`
	SentAt time.Time `json:"sent_at"`
}

// PresenceStore tracks best-effort online state for campus users. Local
// websocket sessions are refcounted so multiple tabs union into one logical
// presence, and remote nodes contribute their own membership snapshots which
// are replaced wholesale on every sync.
type PresenceStore struct {
	mu       sync.RWMutex
	sessions map[string]int                 // local session refcount per user
	remote   map[string]map[string]struct{} // source node -> its member set
	lastSeen map[string]time.Time
	subs     map[*PresenceSubscription]struct{}

	redis     *redis.Client
	channel   string
	mirrorTTL time.Duration
	nats      *nats.Conn
	subject   string
	heartbeat time.Duration
	logger    zerolog.Logger
	nodeID    string
}

// PresenceSubscription delivers filtered presence events until Close is
// called. Close is idempotent and must be invoked on teardown so channel
// listeners never leak across view switches.
type PresenceSubscription struct {
	store  *PresenceStore
	watch  map[string]struct{}
	events chan PresenceEvent
	once   sync.Once
}

// NewPresenceStore constructs the shared presence store. Redis and NATS are
// optional; when nil the store still serves single-node presence.
func NewPresenceStore(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, heartbeat time.Duration, logger zerolog.Logger) *PresenceStore {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatEvery
	}

	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":presence"
		subject = channelBase + ".presence"
	}

	return &PresenceStore{
		sessions:  make(map[string]int),
		remote:    make(map[string]map[string]struct{}),
		lastSeen:  make(map[string]time.Time),
		subs:      make(map[*PresenceSubscription]struct{}),
		redis:     redisClient,
		channel:   channel,
		mirrorTTL: heartbeat * 2,
		nats:      natsConn,
		subject:   subject,
		heartbeat: heartbeat,
		logger:    logger.With().Str("component", "presence_store").Logger(),
		nodeID:    uuid.NewString(),
	}
}

// Start launches the heartbeat loop and the cross-node consumers. It returns
// once the goroutines are scheduled; ctx cancellation stops all of them.
func (s *PresenceStore) Start(ctx context.Context) {
	go s.heartbeatLoop(ctx)
	if s.redis != nil && s.channel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.subject != "" {
		go s.consumeNATS(ctx)
	}
}

// Track registers one live session for the user and returns its release
// function. The first session broadcasts a join; releasing the last one
// broadcasts a leave and stamps the user's last-seen time. Release is
// idempotent.
func (s *PresenceStore) Track(ctx context.Context, userID string) func() {
	s.mu.Lock()
	s.sessions[userID]++
	first := s.sessions[userID] == 1
	s.mu.Unlock()

	if first {
		observability.PresenceOnlineUsers().Inc()
		s.fanout(PresenceEvent{UserID: userID, Online: true, At: time.Now()})
		s.publish(ctx, presenceKindJoin, []string{userID})
		s.mirrorOnline(ctx, userID)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.release(userID) })
	}
}

func (s *PresenceStore) release(userID string) {
	now := time.Now()

	s.mu.Lock()
	s.sessions[userID]--
	last := s.sessions[userID] <= 0
	if last {
		delete(s.sessions, userID)
		if !s.onlineAnywhereLocked(userID) {
			s.lastSeen[userID] = now
		}
	}
	s.mu.Unlock()

	if last {
		observability.PresenceOnlineUsers().Dec()
		ctx := context.Background()
		s.fanout(PresenceEvent{UserID: userID, Online: false, LastSeen: now, At: now})
		s.publish(ctx, presenceKindLeave, []string{userID})
		s.mirrorOffline(ctx, userID, now)
	}
}

// Subscribe registers interest in presence changes for the given users. The
// returned subscription multiplexes the store's single logical channel; no
// additional connections are opened per caller.
func (s *PresenceStore) Subscribe(userIDs ...string) *PresenceSubscription {
	watch := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		watch[id] = struct{}{}
	}

	sub := &PresenceSubscription{
		store:  s,
		watch:  watch,
		events: make(chan PresenceEvent, presenceEventBuffer),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return sub
}

// Events returns the subscription's event stream.
func (sub *PresenceSubscription) Events() <-chan PresenceEvent {
	return sub.events
}

// Close releases the subscription and closes its event channel.
func (sub *PresenceSubscription) Close() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub)
		sub.store.mu.Unlock()
		close(sub.events)
	})
}

// IsOnline reports whether any live session for the user exists, locally or
// on any remote node. Unknown users report false.
func (s *PresenceStore) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onlineAnywhereLocked(userID)
}

// LastActive returns the cached last-seen time, or nil when the user has
// never been observed. Online users have no meaningful last-seen value.
func (s *PresenceStore) LastActive(userID string) *time.Time {
	s.mu.RLock()
	ts, ok := s.lastSeen[userID]
	s.mu.RUnlock()
	if ok {
		return &ts
	}

	if s.redis != nil {
		if raw, err := s.redis.Get(context.Background(), presenceLastSeenKey+userID).Result(); err == nil {
			if parsed, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				return &parsed
			}
		}
	}
	return nil
}

func (s *PresenceStore) onlineAnywhereLocked(userID string) bool {
	if s.sessions[userID] > 0 {
		return true
	}
	for _, members := range s.remote {
		if _, ok := members[userID]; ok {
			return true
		}
	}
	return false
}

func (s *PresenceStore) fanout(event PresenceEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs {
		if len(sub.watch) > 0 {
			if _, watched := sub.watch[event.UserID]; !watched {
				continue
			}
		}
		select {
		case sub.events <- event:
		default:
			s.logger.Debug().Str("user_id", event.UserID).Msg("dropping presence event for slow subscriber")
		}
	}
}

func (s *PresenceStore) publish(ctx context.Context, kind string, users []string) {
	if (s.redis == nil || s.channel == "") && (s.nats == nil || s.subject == "") {
		return
	}

	payload, err := json.Marshal(presenceWireEvent{
		Source: s.nodeID,
		Kind:   kind,
		Users:  users,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal presence event")
		return
	}

	if s.redis != nil && s.channel != "" {
		if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish presence event to redis")
		}
	}
	if s.nats != nil && s.subject != "" {
		if err := s.nats.Publish(s.subject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish presence event to nats")
		}
	}
}

func (s *PresenceStore) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			members := make([]string, 0, len(s.sessions))
			for userID := range s.sessions {
				members = append(members, userID)
			}
			s.mu.RUnlock()

			s.publish(ctx, presenceKindSync, members)
			for _, userID := range members {
				s.mirrorOnline(ctx, userID)
			}
		}
	}
}

func (s *PresenceStore) mirrorOnline(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, presenceMirrorPrefix+userID, s.nodeID, s.mirrorTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to mirror presence to redis")
	}
}

func (s *PresenceStore) mirrorOffline(ctx context.Context, userID string, seen time.Time) {
	if s.redis == nil {
		return
	}
	pipe := s.redis.Pipeline()
	pipe.Del(ctx, presenceMirrorPrefix+userID)
	pipe.Set(ctx, presenceLastSeenKey+userID, seen.UTC().Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to mirror offline transition")
	}
}

func (s *PresenceStore) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("presence redis subscription closed")
			return
		}
		s.handleWireEvent([]byte(msg.Payload))
	}
}

func (s *PresenceStore) consumeNATS(ctx context.Context) {
	// Plain subscribe: every node needs every presence event, so no queue group.
	sub, err := s.nats.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handleWireEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats presence subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain presence nats subscription")
		}
	}()
}

// handleWireEvent applies a remote node's join/leave/sync. Sync replaces the
// source's entire snapshot rather than merging, so stale entries cannot
// accumulate. Transient disconnects leave prior state untouched: a remote set
// only changes when that node speaks again.
func (s *PresenceStore) handleWireEvent(data []byte) {
	var event presenceWireEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid presence event payload")
		return
	}
	if event.Source == s.nodeID {
		return
	}

	now := time.Now()
	var changes []PresenceEvent

	s.mu.Lock()
	switch event.Kind {
	case presenceKindJoin:
		members := s.remote[event.Source]
		if members == nil {
			members = make(map[string]struct{})
			s.remote[event.Source] = members
		}
		for _, userID := range event.Users {
			if s.onlineAnywhereLocked(userID) {
				members[userID] = struct{}{}
				continue
			}
			members[userID] = struct{}{}
			changes = append(changes, PresenceEvent{UserID: userID, Online: true, At: now})
		}
	case presenceKindLeave:
		members := s.remote[event.Source]
		for _, userID := range event.Users {
			delete(members, userID)
			if !s.onlineAnywhereLocked(userID) {
				s.lastSeen[userID] = now
				changes = append(changes, PresenceEvent{UserID: userID, Online: false, LastSeen: now, At: now})
			}
		}
	case presenceKindSync:
		previous := s.remote[event.Source]
		replacement := make(map[string]struct{}, len(event.Users))
		for _, userID := range event.Users {
			replacement[userID] = struct{}{}
		}
		s.remote[event.Source] = replacement

		for _, userID := range event.Users {
			if _, known := previous[userID]; known {
				continue
			}
			if s.sessions[userID] == 0 && !s.remoteElsewhereLocked(event.Source, userID) {
				changes = append(changes, PresenceEvent{UserID: userID, Online: true, At: now})
			}
		}
		for userID := range previous {
			if _, still := replacement[userID]; still {
				continue
			}
			if !s.onlineAnywhereLocked(userID) {
				s.lastSeen[userID] = now
				changes = append(changes, PresenceEvent{UserID: userID, Online: false, LastSeen: now, At: now})
			}
		}
	default:
		s.logger.Warn().Str("kind", event.Kind).Msg("unknown presence event kind")
	}
	s.mu.Unlock()

	for _, change := range changes {
		s.fanout(change)
	}
}

func (s *PresenceStore) remoteElsewhereLocked(excludeSource, userID string) bool {
	for source, members := range s.remote {
		if source == excludeSource {
			continue
		}
		if _, ok := members[userID]; ok {
			return true
		}
	}
	return false
}
