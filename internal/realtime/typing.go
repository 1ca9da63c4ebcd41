package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/observability"
)

// DefaultTypingTTL is how long a typing indicator stays lit without a refresh.
const DefaultTypingTTL = 3 * time.Second

const typingEventBuffer = 8

// TypingEvent signals that a user started or stopped composing inside a
// conversation channel.
type TypingEvent struct {
	ChannelKey string    `json:"channel_key"`
	UserID     string    `json:"user_id"`
	Typing     bool      `json:"typing"`
	At         time.Time `json:"at"`
}

// TypingBroker routes typing events between the conversation trackers on this
// node and, when redis is configured, mirrors them across nodes.
type TypingBroker struct {
	mu        sync.RWMutex
	listeners map[string]map[chan TypingEvent]struct{}
	redis     *redis.Client
	channel   string
	logger    zerolog.Logger
	nodeID    string
}

// NewTypingBroker constructs the shared broker. The redis client is optional.
func NewTypingBroker(redisClient *redis.Client, channelBase, nodeID string, logger zerolog.Logger) *TypingBroker {
	channel := ""
	if channelBase != "" {
		channel = channelBase + ":typing"
	}

	return &TypingBroker{
		listeners: make(map[string]map[chan TypingEvent]struct{}),
		redis:     redisClient,
		channel:   channel,
		logger:    logger.With().Str("component", "typing_broker").Logger(),
		nodeID:    nodeID,
	}
}

// Start launches the cross-node consumer when redis is configured.
func (b *TypingBroker) Start(ctx context.Context) {
	if b.redis != nil && b.channel != "" {
		go b.consumeRedis(ctx)
	}
}

// Publish delivers the event to local listeners of its channel key and mirrors
// it to other nodes.
func (b *TypingBroker) Publish(ctx context.Context, event TypingEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.deliver(event)

	if b.redis == nil || b.channel == "" {
		return
	}
	payload, err := json.Marshal(typingWireEvent{Source: b.nodeID, Event: event})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal typing event")
		return
	}
	if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("failed to publish typing event to redis")
	}
}

// Listen subscribes to one conversation channel. The returned cancel function
// must be called on teardown; it is idempotent.
func (b *TypingBroker) Listen(channelKey string) (<-chan TypingEvent, func()) {
	ch := make(chan TypingEvent, typingEventBuffer)

	b.mu.Lock()
	if _, ok := b.listeners[channelKey]; !ok {
		b.listeners[channelKey] = make(map[chan TypingEvent]struct{})
	}
	b.listeners[channelKey][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if listeners, ok := b.listeners[channelKey]; ok {
				delete(listeners, ch)
				if len(listeners) == 0 {
					delete(b.listeners, channelKey)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (b *TypingBroker) deliver(event TypingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.listeners[event.ChannelKey] {
		select {
		case ch <- event:
		default:
			b.logger.Debug().Str("channel_key", event.ChannelKey).Msg("dropping typing event for slow listener")
		}
	}
}

type typingWireEvent struct {
	Source string      `json:"source"`
	Event  TypingEvent `json:"event"`
}

func (b *TypingBroker) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("typing redis subscription closed")
			return
		}

		var wire typingWireEvent
		if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
			b.logger.Warn().Err(err).Msg("invalid typing event payload")
			continue
		}
		if wire.Source == b.nodeID {
			continue
		}
		b.deliver(wire.Event)
	}
}

// TypingTracker manages one side of one conversation's typing state. Each
// conversation view owns its own tracker; trackers for different counterparts
// never interact.
type TypingTracker struct {
	broker      *TypingBroker
	selfID      string
	counterpart string
	channelKey  string
	ttl         time.Duration

	mu     sync.Mutex
	active bool
	timer  *time.Timer
	closed bool
}

// NewTypingTracker builds a tracker for the conversation between selfID and
// counterpartID. A non-positive ttl falls back to DefaultTypingTTL.
func NewTypingTracker(broker *TypingBroker, selfID, counterpartID string, ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingTracker{
		broker:      broker,
		selfID:      selfID,
		counterpart: counterpartID,
		channelKey:  ChannelKey(selfID, counterpartID),
		ttl:         ttl,
	}
}

// NotifyTyping refreshes the expiry window and broadcasts the typing state on
// the false-to-true transition. Re-arming cancels the existing timer; there is
// never more than one pending expiry per tracker.
func (t *TypingTracker) NotifyTyping(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	transition := !t.active
	t.active = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.ttl, t.expire)
	t.mu.Unlock()

	if transition {
		observability.TypingSessionsActive().Inc()
		t.broker.Publish(ctx, TypingEvent{ChannelKey: t.channelKey, UserID: t.selfID, Typing: true})
	}
}

// StopTyping broadcasts that the local user stopped composing and cancels the
// pending expiry.
func (t *TypingTracker) StopTyping(ctx context.Context) {
	t.mu.Lock()
	wasActive := t.active
	t.active = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if wasActive {
		observability.TypingSessionsActive().Dec()
		t.broker.Publish(ctx, TypingEvent{ChannelKey: t.channelKey, UserID: t.selfID, Typing: false})
	}
}

func (t *TypingTracker) expire() {
	t.StopTyping(context.Background())
}

// ObserveRemote emits an event whenever the counterpart's typing state
// changes. The cancel function releases the underlying listener and must run
// on teardown.
func (t *TypingTracker) ObserveRemote() (<-chan TypingEvent, func()) {
	raw, cancelListen := t.broker.Listen(t.channelKey)
	out := make(chan TypingEvent, typingEventBuffer)

	done := make(chan struct{})
	go func() {
		defer close(out)
		last := false
		for {
			select {
			case event, ok := <-raw:
				if !ok {
					return
				}
				if event.UserID != t.counterpart {
					continue
				}
				if event.Typing == last {
					continue
				}
				last = event.Typing
				select {
				case out <- event:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelListen()
		})
	}
	return out, cancel
}

// Close stops any active typing broadcast and is safe to call multiple times.
func (t *TypingTracker) Close(ctx context.Context) {
	t.StopTyping(ctx)
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
