package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/repository"
)

// SettingsService reads and updates per-user privacy settings. The mapping
// between request toggles and storage columns is strictly one-to-one.
type SettingsService interface {
	Get(ctx context.Context, userID string) (dto.PrivacySettingsResponse, error)
	Update(ctx context.Context, userID string, payload dto.PrivacySettingsRequest) (dto.PrivacySettingsResponse, error)
}

type settingsService struct {
	profiles  repository.ProfileRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSettingsService constructs a settings service.
func NewSettingsService(profiles repository.ProfileRepository, validate *validator.Validate, logger zerolog.Logger) SettingsService {
	return &settingsService{
		profiles:  profiles,
		validator: validate,
		logger:    logger.With().Str("component", "settings_service").Logger(),
	}
}

func (s *settingsService) Get(ctx context.Context, userID string) (dto.PrivacySettingsResponse, error) {
	settings, err := s.profiles.SettingsFor(ctx, userID)
	if err != nil {
		return dto.PrivacySettingsResponse{}, err
	}
	return dto.NewPrivacySettingsResponse(settings), nil
}

func (s *settingsService) Update(ctx context.Context, userID string, payload dto.PrivacySettingsRequest) (dto.PrivacySettingsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PrivacySettingsResponse{}, err
	}

	settings, err := s.profiles.SettingsFor(ctx, userID)
	if err != nil {
		return dto.PrivacySettingsResponse{}, err
	}

	if payload.ShowOnlineStatus != nil {
		settings.ShowOnlineStatus = *payload.ShowOnlineStatus
	}
	if payload.ShowLastSeen != nil {
		settings.ShowLastSeen = *payload.ShowLastSeen
	}
	if payload.ShowSchool != nil {
		settings.ShowSchool = *payload.ShowSchool
	}
	if payload.ShowBirthday != nil {
		settings.ShowBirthday = *payload.ShowBirthday
	}
	if payload.AllowFriendRequests != nil {
		settings.AllowFriendRequests = *payload.AllowFriendRequests
	}
	if payload.AllowMessagesFrom != nil {
		settings.AllowMessagesFrom = *payload.AllowMessagesFrom
	}

	if err := s.profiles.SaveSettings(ctx, &settings); err != nil {
		return dto.PrivacySettingsResponse{}, err
	}

	return dto.NewPrivacySettingsResponse(settings), nil
}
