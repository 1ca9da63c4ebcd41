package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

var (
	// ErrFriendRequestExists indicates a friendship edge already links the pair.
	ErrFriendRequestExists = errors.New("friend request already exists")
	// ErrFriendRequestsClosed indicates the addressee does not accept requests.
	ErrFriendRequestsClosed = errors.New("user does not accept friend requests")
	// ErrFriendshipNotFound indicates no edge exists for the operation.
	ErrFriendshipNotFound = errors.New("friendship not found")
	// ErrNotAddressee indicates someone other than the addressee tried to
	// resolve a pending request.
	ErrNotAddressee = errors.New("only the addressee can resolve the request")
	// ErrSelfFriendship rejects a request targeting the requester.
	ErrSelfFriendship = errors.New("cannot send a friend request to yourself")
)

// FriendService manages friendship requests and edges.
type FriendService interface {
	Request(ctx context.Context, requesterID string, payload dto.FriendRequestCreate) (dto.FriendshipResponse, error)
	Accept(ctx context.Context, userID string, friendshipID uint) (dto.FriendshipResponse, error)
	Decline(ctx context.Context, userID string, friendshipID uint) (dto.FriendshipResponse, error)
	Remove(ctx context.Context, userID string, friendshipID uint) error
	Friends(ctx context.Context, userID string) ([]dto.FriendshipResponse, error)
	Pending(ctx context.Context, userID string) ([]dto.FriendshipResponse, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

type friendService struct {
	repo      repository.FriendRepository
	profiles  repository.ProfileRepository
	notifier  NotificationPublisher
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewFriendService constructs a friend service.
func NewFriendService(repo repository.FriendRepository, profiles repository.ProfileRepository, notifier NotificationPublisher, validate *validator.Validate, logger zerolog.Logger) FriendService {
	return &friendService{
		repo:      repo,
		profiles:  profiles,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "friend_service").Logger(),
	}
}

func (s *friendService) Request(ctx context.Context, requesterID string, payload dto.FriendRequestCreate) (dto.FriendshipResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FriendshipResponse{}, err
	}

	addressee := strings.TrimSpace(payload.AddresseeID)
	if addressee == requesterID {
		return dto.FriendshipResponse{}, ErrSelfFriendship
	}

	settings, err := s.profiles.SettingsFor(ctx, addressee)
	if err == nil && !settings.AllowFriendRequests {
		return dto.FriendshipResponse{}, ErrFriendRequestsClosed
	}

	if _, err := s.repo.FindByPair(ctx, requesterID, addressee); err == nil {
		return dto.FriendshipResponse{}, ErrFriendRequestExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.FriendshipResponse{}, err
	}

	friendship := models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addressee,
		Status:      models.FriendStatusPending,
	}
	if err := s.repo.Create(ctx, &friendship); err != nil {
		return dto.FriendshipResponse{}, err
	}

	s.notify(ctx, addressee, requesterID, "sent you a friend request")

	return dto.NewFriendshipResponse(friendship), nil
}

func (s *friendService) Accept(ctx context.Context, userID string, friendshipID uint) (dto.FriendshipResponse, error) {
	friendship, err := s.resolvePending(ctx, userID, friendshipID)
	if err != nil {
		return dto.FriendshipResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, friendship.ID, models.FriendStatusAccepted)
	if err != nil {
		return dto.FriendshipResponse{}, err
	}

	s.notify(ctx, friendship.RequesterID, userID, "accepted your friend request")

	return dto.NewFriendshipResponse(updated), nil
}

func (s *friendService) Decline(ctx context.Context, userID string, friendshipID uint) (dto.FriendshipResponse, error) {
	friendship, err := s.resolvePending(ctx, userID, friendshipID)
	if err != nil {
		return dto.FriendshipResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, friendship.ID, models.FriendStatusDeclined)
	if err != nil {
		return dto.FriendshipResponse{}, err
	}

	return dto.NewFriendshipResponse(updated), nil
}

func (s *friendService) resolvePending(ctx context.Context, userID string, friendshipID uint) (models.Friendship, error) {
	friendship, err := s.repo.FindByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Friendship{}, ErrFriendshipNotFound
		}
		return models.Friendship{}, err
	}
	if friendship.AddresseeID != userID {
		return models.Friendship{}, ErrNotAddressee
	}
	return friendship, nil
}

func (s *friendService) Remove(ctx context.Context, userID string, friendshipID uint) error {
	friendship, err := s.repo.FindByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendshipNotFound
		}
		return err
	}
	if friendship.RequesterID != userID && friendship.AddresseeID != userID {
		return ErrFriendshipNotFound
	}
	return s.repo.Delete(ctx, friendship.ID)
}

func (s *friendService) Friends(ctx context.Context, userID string) ([]dto.FriendshipResponse, error) {
	friendships, err := s.repo.ListForUser(ctx, userID, models.FriendStatusAccepted)
	if err != nil {
		return nil, err
	}
	return dto.NewFriendshipResponseSlice(friendships), nil
}

func (s *friendService) Pending(ctx context.Context, userID string) ([]dto.FriendshipResponse, error) {
	friendships, err := s.repo.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewFriendshipResponseSlice(friendships), nil
}

// FriendIDs returns the accepted counterpart ids, used to scope the feed.
func (s *friendService) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	friendships, err := s.repo.ListForUser(ctx, userID, models.FriendStatusAccepted)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for _, friendship := range friendships {
		if friendship.RequesterID == userID {
			ids = append(ids, friendship.AddresseeID)
		} else {
			ids = append(ids, friendship.RequesterID)
		}
	}
	return ids, nil
}

func (s *friendService) notify(ctx context.Context, userID, senderID, message string) {
	if s.notifier == nil {
		return
	}

	sender := &dto.NotificationSender{ID: senderID}
	if profile, err := s.profiles.FindByUserID(ctx, senderID); err == nil {
		sender.Name = profile.Name
		sender.Avatar = profile.AvatarURL
		message = profile.Name + " " + message
	}

	if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  userID,
		Type:    models.NotificationTypeFriend,
		Message: message,
		Sender:  sender,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish friend notification")
	}
}
