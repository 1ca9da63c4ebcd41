package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusconnect/campus-api/internal/models"
)

// ProfileRepository persists user profiles and privacy settings.
type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	SettingsFor(ctx context.Context, userID string) (models.PrivacySettings, error)
	SaveSettings(ctx context.Context, settings *models.PrivacySettings) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a profile repository backed by GORM.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(profile).Error
}

// SettingsFor returns the user's privacy settings, creating the default row on
// first access so callers always see a complete record.
func (r *profileRepository) SettingsFor(ctx context.Context, userID string) (models.PrivacySettings, error) {
	var settings models.PrivacySettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return models.PrivacySettings{}, err
	}

	settings = models.PrivacySettings{
		UserID:              userID,
		ShowOnlineStatus:    true,
		ShowLastSeen:        true,
		ShowSchool:          true,
		ShowBirthday:        false,
		AllowFriendRequests: true,
		AllowMessagesFrom:   "friends",
	}
	if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return models.PrivacySettings{}, err
	}
	return settings, nil
}

func (r *profileRepository) SaveSettings(ctx context.Context, settings *models.PrivacySettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
