package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/observability"
	"github.com/campusconnect/campus-api/internal/realtime"
	"github.com/campusconnect/campus-api/internal/repository"
)

const (
	messageRedisTTL       = 30 * time.Minute
	messageSendBufferSize = 32
)

// ErrMessagingNotAllowed indicates the receiver's privacy settings reject
// messages from the sender.
var ErrMessagingNotAllowed = errors.New("receiver does not accept messages from sender")

// Websocket frame types exchanged on a conversation connection.
const (
	FrameMessage    = "message"
	FrameTyping     = "typing"
	FrameStopTyping = "stop_typing"
	FrameMarkRead   = "mark_read"
	FramePresence   = "presence"
	FrameRead       = "read"
	FrameError      = "error"
)

// ConversationFrame is a client-to-server websocket frame.
type ConversationFrame struct {
	Type    string                  `json:"type"`
	Message *dto.MessageSendRequest `json:"message,omitempty"`
}

// ConversationEvent is a server-to-client websocket frame.
type ConversationEvent struct {
	Type     string                      `json:"type"`
	Message  *dto.MessageResponse        `json:"message,omitempty"`
	Typing   *dto.TypingStateResponse    `json:"typing,omitempty"`
	Presence *dto.PresenceStatusResponse `json:"presence,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// ConversationOptions wraps metadata extracted during the HTTP upgrade.
type ConversationOptions struct {
	UserID        string
	PeerID        string
	CorrelationID string
	Context       context.Context
}

// MessageService manages websocket conversations and message delivery.
type MessageService interface {
	ServeConversation(conn *websocket.Conn, opts ConversationOptions)
	History(ctx context.Context, userID string, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error)
	Conversations(ctx context.Context, userID string) ([]dto.ConversationSummaryResponse, error)
	MarkRead(ctx context.Context, userID, peerID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Start(ctx context.Context)
}

type messageService struct {
	repo        repository.MessageRepository
	profiles    repository.ProfileRepository
	presence    *realtime.PresenceStore
	typing      *realtime.TypingBroker
	redis       *redis.Client
	redisStream string
	redisCache  string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	notifier    NotificationPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *conversationHub
	nodeID      string
}

// NotificationPublisher decouples message delivery from the notification
// service to avoid a construction cycle.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

type conversationHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*conversationClient]struct{}
	log   zerolog.Logger
}

type conversationClient struct {
	conn    *websocket.Conn
	send    chan ConversationEvent
	options ConversationOptions
	channel string
	service *messageService
	tracker *realtime.TypingTracker
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type messageEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewMessageService creates a websocket conversation service instance.
func NewMessageService(
	repo repository.MessageRepository,
	profiles repository.ProfileRepository,
	presence *realtime.PresenceStore,
	typing *realtime.TypingBroker,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	notifier NotificationPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	hub := &conversationHub{
		rooms: make(map[string]map[*conversationClient]struct{}),
		log:   logger.With().Str("component", "conversation_hub").Logger(),
	}

	stream := ""
	cachePrefix := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":messages"
		cachePrefix = channelBase + ":messages:last"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &messageService{
		repo:        repo,
		profiles:    profiles,
		presence:    presence,
		typing:      typing,
		redis:       redisClient,
		redisStream: stream,
		redisCache:  cachePrefix,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		notifier:    notifier,
		logger:      logger.With().Str("component", "message_service").Logger(),
		tracer:      otel.Tracer("github.com/campusconnect/campus-api/internal/service/message"),
		sanitizer:   sanitizer,
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *messageService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *messageService) ServeConversation(conn *websocket.Conn, opts ConversationOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	channel := realtime.ChannelKey(opts.UserID, opts.PeerID)
	client := &conversationClient{
		conn:    conn,
		send:    make(chan ConversationEvent, messageSendBufferSize),
		options: opts,
		channel: channel,
		service: s,
		tracker: realtime.NewTypingTracker(s.typing, opts.UserID, opts.PeerID, realtime.DefaultTypingTTL),
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.WSConnectionsTotal().Inc()

	releasePresence := s.presence.Track(baseCtx, opts.UserID)
	peerEvents := s.presence.Subscribe(opts.PeerID)
	typingEvents, cancelTyping := client.tracker.ObserveRemote()

	go client.forwardPresence(peerEvents)
	go client.forwardTyping(typingEvents)

	client.sendInitialState()

	if last := s.fetchLastMessage(baseCtx, channel); last != nil {
		select {
		case client.send <- ConversationEvent{Type: FrameMessage, Message: last}:
		default:
			s.logger.Debug().Str("channel_key", channel).Msg("dropping cached message for slow consumer")
		}
	}

	go client.writer()
	client.reader()

	// Teardown in reverse acquisition order.
	client.tracker.Close(baseCtx)
	cancelTyping()
	peerEvents.Close()
	releasePresence()
}

func (s *messageService) History(ctx context.Context, userID string, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	channel := realtime.ChannelKey(userID, query.PeerID)
	messages, err := s.repo.ListByChannel(ctx, channel, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) Conversations(ctx context.Context, userID string) ([]dto.ConversationSummaryResponse, error) {
	channels, err := s.repo.ListChannelsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ConversationSummaryResponse, 0, len(channels))
	for _, channel := range channels {
		summary := dto.ConversationSummaryResponse{PeerID: peerFromChannel(channel, userID)}

		if latest, err := s.repo.LatestByChannel(ctx, channel); err == nil {
			response := dto.NewMessageResponse(latest)
			summary.LastMessage = &response
		}
		if unread, err := s.repo.CountUnreadByChannel(ctx, channel, userID); err == nil {
			summary.UnreadCount = unread
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *messageService) MarkRead(ctx context.Context, userID, peerID string) (int64, error) {
	channel := realtime.ChannelKey(userID, peerID)
	return s.repo.MarkConversationRead(ctx, channel, userID)
}

func (s *messageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *messageService) processSend(ctx context.Context, client *conversationClient, correlation string, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if payload.ReceiverID == "" {
		payload.ReceiverID = client.options.PeerID
	}
	payload.ReceiverID = strings.TrimSpace(payload.ReceiverID)

	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	if err := s.authorise(ctx, client.options.UserID, payload.ReceiverID); err != nil {
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.MessageResponse{}, fmt.Errorf("message content empty after sanitization")
	}

	attrs := []attribute.KeyValue{
		attribute.String("message.channel_key", client.channel),
		attribute.String("message.sender_id", client.options.UserID),
	}
	if correlation != "" {
		attrs = append(attrs, attribute.String("correlation_id", correlation))
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.send", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.Message{
		SenderID:   client.options.UserID,
		ReceiverID: payload.ReceiverID,
		ChannelKey: realtime.ChannelKey(client.options.UserID, payload.ReceiverID),
		Content:    clean,
		ClientRef:  strings.TrimSpace(payload.ClientRef),
	}

	if err := s.repo.Save(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(model)
	s.cacheLastMessage(spanCtx, response)
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish message event")
	}
	s.notifyOffline(spanCtx, response)

	observability.MessagesSent().WithLabelValues("local").Inc()

	return response, nil
}

// authorise enforces the receiver's allow_messages_from setting. "friends" is
// checked by the handler layer resolving friendship before the upgrade; here
// only "nobody" is a hard stop so a stale connection cannot keep sending.
func (s *messageService) authorise(ctx context.Context, senderID, receiverID string) error {
	if s.profiles == nil {
		return nil
	}

	settings, err := s.profiles.SettingsFor(ctx, receiverID)
	if err != nil {
		// Missing settings default to open; storage errors must not block chat.
		s.logger.Debug().Err(err).Str("receiver_id", receiverID).Msg("failed to load receiver settings")
		return nil
	}
	if settings.AllowMessagesFrom == "nobody" && senderID != receiverID {
		return ErrMessagingNotAllowed
	}
	return nil
}

// notifyOffline publishes a message notification when the receiver has no
// live presence session anywhere.
func (s *messageService) notifyOffline(ctx context.Context, message dto.MessageResponse) {
	if s.notifier == nil || s.presence == nil {
		return
	}
	if s.presence.IsOnline(message.ReceiverID) {
		return
	}

	preview := message.Content
	if len(preview) > 120 {
		preview = preview[:120]
	}

	_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:    message.ReceiverID,
		Type:      models.NotificationTypeMessage,
		Message:   preview,
		RelatedID: fmt.Sprintf("%d", message.ID),
		Sender:    &dto.NotificationSender{ID: message.SenderID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish message notification")
	}
}

func (s *messageService) cacheLastMessage(ctx context.Context, message dto.MessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, message.ChannelKey)
	if err := s.redis.Set(ctx, key, payload, messageRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache message")
	}
}

func (s *messageService) fetchLastMessage(ctx context.Context, channelKey string) *dto.MessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, channelKey)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.MessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached message")
		return nil
	}

	return &message
}

func (s *messageService) broadcast(message dto.MessageResponse) {
	s.hub.broadcast(message.ChannelKey, ConversationEvent{Type: FrameMessage, Message: &message})
}

func (s *messageService) publish(ctx context.Context, message dto.MessageResponse) error {
	event := messageEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *messageService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("message redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *messageService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "campus-messages", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats message subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain message nats subscription")
		}
	}()
}

func (s *messageService) handleEvent(data []byte) {
	var event messageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid message event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.MessagesSent().WithLabelValues("remote").Inc()
	s.broadcast(event.Message)
}

func peerFromChannel(channelKey, selfID string) string {
	trimmed := strings.TrimPrefix(channelKey, "dm:")
	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	if parts[0] == selfID {
		return parts[1]
	}
	return parts[0]
}

func (h *conversationHub) register(client *conversationClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[client.channel]; !exists {
		h.rooms[client.channel] = make(map[*conversationClient]struct{})
	}
	h.rooms[client.channel][client] = struct{}{}
	h.log.Debug().Str("channel_key", client.channel).Str("user_id", client.options.UserID).Msg("conversation client connected")
}

func (h *conversationHub) unregister(client *conversationClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, client.channel)
		}
	}
	h.log.Debug().Str("channel_key", client.channel).Str("user_id", client.options.UserID).Msg("conversation client disconnected")
}

func (h *conversationHub) broadcast(channelKey string, event ConversationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[channelKey]
	for client := range clients {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("channel_key", channelKey).Str("user_id", client.options.UserID).Msg("dropping event for slow client")
		}
	}
}

func (c *conversationClient) sendInitialState() {
	peer := c.options.PeerID
	status := dto.NewPresenceStatusResponse(peer, c.service.presence.IsOnline(peer), c.service.presence.LastActive(peer))
	select {
	case c.send <- ConversationEvent{Type: FramePresence, Presence: &status}:
	default:
	}
}

func (c *conversationClient) forwardPresence(sub *realtime.PresenceSubscription) {
	for event := range sub.Events() {
		var lastActive *time.Time
		if !event.Online && !event.LastSeen.IsZero() {
			seen := event.LastSeen
			lastActive = &seen
		}
		status := dto.NewPresenceStatusResponse(event.UserID, event.Online, lastActive)
		select {
		case c.send <- ConversationEvent{Type: FramePresence, Presence: &status}:
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *conversationClient) forwardTyping(events <-chan realtime.TypingEvent) {
	for event := range events {
		state := dto.TypingStateResponse{UserID: event.UserID, Typing: event.Typing}
		select {
		case c.send <- ConversationEvent{Type: FrameTyping, Typing: &state}:
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *conversationClient) reader() {
	defer c.close()

	connCtx := c.baseCtx
	correlation := c.options.CorrelationID

	for {
		var frame ConversationFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.service.logger.Debug().Err(err).Msg("conversation read loop ended")
			return
		}

		switch frame.Type {
		case FrameMessage:
			if frame.Message == nil {
				continue
			}
			response, err := c.service.processSend(connCtx, c, correlation, *frame.Message)
			if err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to process message")
				select {
				case c.send <- ConversationEvent{Type: FrameError, Error: err.Error()}:
				default:
				}
				continue
			}

			select {
			case <-c.closed:
				return
			default:
			}

			select {
			case c.send <- ConversationEvent{Type: FrameMessage, Message: &response}:
			default:
				c.service.logger.Warn().Msg("sender queue full, dropping ack message")
			}
		case FrameTyping:
			c.tracker.NotifyTyping(connCtx)
		case FrameStopTyping:
			c.tracker.StopTyping(connCtx)
		case FrameMarkRead:
			if _, err := c.service.MarkRead(connCtx, c.options.UserID, c.options.PeerID); err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to mark conversation read")
				continue
			}
			c.service.hub.broadcast(c.channel, ConversationEvent{Type: FrameRead})
		default:
			c.service.logger.Debug().Str("frame_type", frame.Type).Msg("ignoring unknown frame")
		}
	}
}

func (c *conversationClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("conversation write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("conversation ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *conversationClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
