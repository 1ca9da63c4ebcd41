package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/observability"
	"github.com/campusconnect/campus-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound indicates the target record is not in the cache.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService fetches, groups and mutates notification records while
// keeping the derived unread counter consistent, and streams new
// notifications to connected users.
type NotificationService interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	Refresh(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error)
	Cached(userID string) []dto.NotificationResponse
	UnreadCount(userID string) int
	MarkRead(ctx context.Context, userID string, id uint) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string, id uint) error
	ClearAll(ctx context.Context, userID string) error
	Subscribe(userID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	cache       *notificationCache
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

// notificationCache is the aggregator's per-user snapshot of durable records.
// Mutations are applied here first and rolled back to the last-fetched truth
// when the durable write fails.
type notificationCache struct {
	mu      sync.Mutex
	records map[string][]models.Notification
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/campusconnect/campus-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
		},
		cache: &notificationCache{
			records: make(map[string][]models.Notification),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	attrs := []attribute.KeyValue{
		attribute.String("notification.user_id", payload.UserID),
		attribute.String("notification.type", payload.Type),
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.Notification{
		UserID:   payload.UserID,
		Type:     payload.Type,
		Message:  cleanMessage,
		Metadata: metadataFromRequest(payload),
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	s.cache.prepend(payload.UserID, model)

	response := dto.NewNotificationResponse(model)
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()

	return response, nil
}

// Refresh replaces the user's cached snapshot with the durable truth.
func (s *notificationService) Refresh(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	s.cache.replace(userID, notifications)
	return dto.NewNotificationResponseSlice(notifications), nil
}

// Cached returns the current snapshot without touching durable storage.
func (s *notificationService) Cached(userID string) []dto.NotificationResponse {
	return dto.NewNotificationResponseSlice(s.cache.snapshot(userID))
}

// UnreadCount is always recomputed from the cache, never adjusted in place,
// so the badge cannot drift from the list contents.
func (s *notificationService) UnreadCount(userID string) int {
	count := 0
	for _, record := range s.cache.snapshot(userID) {
		if !record.Read {
			count++
		}
	}
	return count
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	err := mutateOptimistically(
		func() func() { return s.cache.markRead(userID, id) },
		func() error {
			_, err := s.repo.MarkRead(ctx, id, userID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotificationNotFound
			}
			return err
		},
	)
	s.recordMutation("mark_read", err)
	return err
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	err := mutateOptimistically(
		func() func() { return s.cache.markAllRead(userID) },
		func() error {
			_, err := s.repo.MarkAllRead(ctx, userID)
			return err
		},
	)
	s.recordMutation("mark_all_read", err)
	return err
}

func (s *notificationService) Delete(ctx context.Context, userID string, id uint) error {
	err := mutateOptimistically(
		func() func() { return s.cache.remove(userID, id) },
		func() error {
			if err := s.repo.Delete(ctx, id, userID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotificationNotFound
				}
				return err
			}
			return nil
		},
	)
	s.recordMutation("delete", err)
	return err
}

func (s *notificationService) ClearAll(ctx context.Context, userID string) error {
	err := mutateOptimistically(
		func() func() { return s.cache.clear(userID) },
		func() error {
			_, err := s.repo.DeleteAll(ctx, userID)
			return err
		},
	)
	s.recordMutation("clear_all", err)
	return err
}

func (s *notificationService) recordMutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rolled_back"
	}
	observability.NotificationMutations().WithLabelValues(operation, outcome).Inc()
}

func (s *notificationService) Subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.SSEClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
		observability.SSEClientsActive().Dec()
	}

	return channel, cleanup
}

// GroupNotificationsByRecency partitions records into today/yesterday/older
// buckets. The local-midnight boundaries are computed once per call.
func GroupNotificationsByRecency(records []dto.NotificationResponse, now time.Time, loc *time.Location) dto.NotificationGroupsResponse {
	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	todayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	groups := dto.NotificationGroupsResponse{
		Today:     []dto.NotificationResponse{},
		Yesterday: []dto.NotificationResponse{},
		Older:     []dto.NotificationResponse{},
	}

	for _, record := range records {
		created := record.CreatedAt.In(loc)
		switch {
		case !created.Before(todayStart):
			groups.Today = append(groups.Today, record)
		case !created.Before(yesterdayStart):
			groups.Yesterday = append(groups.Yesterday, record)
		default:
			groups.Older = append(groups.Older, record)
		}
	}

	return groups
}

func (s *notificationService) broadcast(notification dto.NotificationResponse) {
	s.broker.broadcast(notification.UserID, notification)
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
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

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "campus-notifications", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	notification := event.Notification
	if notification.Type == "" {
		notification.Type = models.NotificationTypeSystem
	}

	observability.NotificationsPublishedTotal().WithLabelValues(notification.Type).Inc()
	s.broadcast(notification)
}

func metadataFromRequest(payload dto.NotificationCreateRequest) datatypes.JSONMap {
	metadata := datatypes.JSONMap{}
	if payload.RelatedID != "" {
		metadata["related_id"] = payload.RelatedID
	}
	if payload.URL != "" {
		metadata["url"] = payload.URL
	}
	if payload.Sender != nil {
		metadata["sender_id"] = payload.Sender.ID
		if payload.Sender.Name != "" {
			metadata["sender_name"] = payload.Sender.Name
		}
		if payload.Sender.Avatar != "" {
			metadata["sender_avatar"] = payload.Sender.Avatar
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func (b *notificationBroker) subscribe(userID string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID string, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[userID]
	for ch := range subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
}

func (c *notificationCache) snapshot(userID string) []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.records[userID]
	out := make([]models.Notification, len(records))
	copy(out, records)
	return out
}

func (c *notificationCache) replace(userID string, records []models.Notification) {
	copied := make([]models.Notification, len(records))
	copy(copied, records)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[userID] = copied
}

func (c *notificationCache) prepend(userID string, record models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[userID] = append([]models.Notification{record}, c.records[userID]...)
}

// Each mutator returns the inverse delta: a rollback restoring the snapshot
// taken before the change.

func (c *notificationCache) markRead(userID string, id uint) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpointLocked(userID)
	for i := range c.records[userID] {
		if c.records[userID][i].ID == id {
			c.records[userID][i].Read = true
			break
		}
	}
	return restore
}

func (c *notificationCache) markAllRead(userID string) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpointLocked(userID)
	for i := range c.records[userID] {
		c.records[userID][i].Read = true
	}
	return restore
}

func (c *notificationCache) remove(userID string, id uint) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpointLocked(userID)
	records := c.records[userID]
	for i := range records {
		if records[i].ID == id {
			c.records[userID] = append(records[:i:i], records[i+1:]...)
			break
		}
	}
	return restore
}

func (c *notificationCache) clear(userID string) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpointLocked(userID)
	c.records[userID] = nil
	return restore
}

func (c *notificationCache) checkpointLocked(userID string) func() {
	snapshot := make([]models.Notification, len(c.records[userID]))
	copy(snapshot, c.records[userID])

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.records[userID] = snapshot
	}
}
