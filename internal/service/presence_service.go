package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/realtime"
	"github.com/campusconnect/campus-api/internal/repository"
)

// PresenceService answers presence queries with the target user's privacy
// settings applied.
type PresenceService interface {
	Status(ctx context.Context, userID string) (dto.PresenceStatusResponse, error)
	StatusBatch(ctx context.Context, userIDs []string) ([]dto.PresenceStatusResponse, error)
}

type presenceService struct {
	store    *realtime.PresenceStore
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

// NewPresenceService constructs a presence query service.
func NewPresenceService(store *realtime.PresenceStore, profiles repository.ProfileRepository, logger zerolog.Logger) PresenceService {
	return &presenceService{
		store:    store,
		profiles: profiles,
		logger:   logger.With().Str("component", "presence_service").Logger(),
	}
}

// Status reports the user's presence. A hidden online status degrades to
// whatever the last-seen visibility allows, never to a fake "offline now".
func (s *presenceService) Status(ctx context.Context, userID string) (dto.PresenceStatusResponse, error) {
	settings, err := s.profiles.SettingsFor(ctx, userID)
	if err != nil {
		return dto.PresenceStatusResponse{}, err
	}

	online := s.store.IsOnline(userID) && settings.ShowOnlineStatus

	var lastActive *time.Time
	if settings.ShowLastSeen {
		lastActive = s.store.LastActive(userID)
	}

	return dto.NewPresenceStatusResponse(userID, online, lastActive), nil
}

func (s *presenceService) StatusBatch(ctx context.Context, userIDs []string) ([]dto.PresenceStatusResponse, error) {
	out := make([]dto.PresenceStatusResponse, 0, len(userIDs))
	for _, userID := range userIDs {
		status, err := s.Status(ctx, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}
