package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

// ErrPushSubscriptionNotFound indicates the endpoint is not registered for
// the user.
var ErrPushSubscriptionNotFound = errors.New("push subscription not found")

// PushService manages Web Push endpoint registrations. It is constructed once
// at startup and handed to consumers that need delivery targets; there is no
// package-level registry.
type PushService interface {
	Subscribe(ctx context.Context, userID, userAgent string, payload dto.PushSubscribeRequest) (dto.PushSubscriptionResponse, error)
	Unsubscribe(ctx context.Context, userID, endpoint string) error
	Subscriptions(ctx context.Context, userID string) ([]dto.PushSubscriptionResponse, error)
}

type pushService struct {
	repo      repository.PushSubscriptionRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPushService constructs a push subscription service.
func NewPushService(repo repository.PushSubscriptionRepository, validate *validator.Validate, logger zerolog.Logger) PushService {
	return &pushService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "push_service").Logger(),
	}
}

// Subscribe registers or refreshes an endpoint. Re-registering an endpoint
// already owned by the user updates its keys in place.
func (s *pushService) Subscribe(ctx context.Context, userID, userAgent string, payload dto.PushSubscribeRequest) (dto.PushSubscriptionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PushSubscriptionResponse{}, err
	}

	subscription := models.PushSubscription{
		UserID:    userID,
		Endpoint:  payload.Endpoint,
		P256dh:    payload.P256dh,
		Auth:      payload.Auth,
		UserAgent: userAgent,
	}
	if err := s.repo.Upsert(ctx, &subscription); err != nil {
		return dto.PushSubscriptionResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Msg("push endpoint registered")

	return dto.PushSubscriptionResponse{
		ID:       subscription.ID,
		Endpoint: subscription.Endpoint,
	}, nil
}

func (s *pushService) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if endpoint == "" {
		return ErrPushSubscriptionNotFound
	}
	if err := s.repo.DeleteByEndpoint(ctx, userID, endpoint); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPushSubscriptionNotFound
		}
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("push endpoint removed")
	return nil
}

func (s *pushService) Subscriptions(ctx context.Context, userID string) ([]dto.PushSubscriptionResponse, error) {
	subscriptions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PushSubscriptionResponse, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		out = append(out, dto.PushSubscriptionResponse{
			ID:       subscription.ID,
			Endpoint: subscription.Endpoint,
		})
	}
	return out, nil
}
