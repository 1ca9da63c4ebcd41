package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/repository"
)

// ErrProfileNotFound indicates no profile exists for the user.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileService serves public profile views and owner updates.
type ProfileService interface {
	Get(ctx context.Context, viewerID, userID string) (dto.ProfileResponse, error)
	Update(ctx context.Context, userID string, payload dto.ProfileUpdateRequest) (dto.ProfileResponse, error)
	SetAvatar(ctx context.Context, userID, url string) (dto.ProfileResponse, error)
}

type profileService struct {
	repo      repository.ProfileRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProfileService constructs a profile service.
func NewProfileService(repo repository.ProfileRepository, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	return &profileService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "profile_service").Logger(),
	}
}

// Get returns the profile as the viewer is allowed to see it: fields hidden
// by the owner's privacy settings are stripped unless the viewer is the owner.
func (s *profileService) Get(ctx context.Context, viewerID, userID string) (dto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrProfileNotFound
		}
		return dto.ProfileResponse{}, err
	}

	response := dto.NewProfileResponse(profile)
	if viewerID == userID {
		return response, nil
	}

	settings, err := s.repo.SettingsFor(ctx, userID)
	if err != nil {
		return response, nil
	}
	if !settings.ShowSchool {
		response.School = ""
	}
	if !settings.ShowBirthday {
		response.Birthday = nil
	}

	return response, nil
}

func (s *profileService) Update(ctx context.Context, userID string, payload dto.ProfileUpdateRequest) (dto.ProfileResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, err
	}
	profile.UserID = userID

	if payload.Name != nil {
		profile.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.School != nil {
		profile.School = strings.TrimSpace(*payload.School)
	}
	if payload.Bio != nil {
		profile.Bio = strings.TrimSpace(*payload.Bio)
	}
	if payload.Birthday != nil {
		profile.Birthday = payload.Birthday
	}

	if err := s.repo.Upsert(ctx, &profile); err != nil {
		return dto.ProfileResponse{}, err
	}

	return dto.NewProfileResponse(profile), nil
}

func (s *profileService) SetAvatar(ctx context.Context, userID, url string) (dto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, err
	}
	profile.UserID = userID
	profile.AvatarURL = url

	if err := s.repo.Upsert(ctx, &profile); err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(profile), nil
}
