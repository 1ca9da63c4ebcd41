package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusconnect/campus-api/internal/models"
)

// PushSubscriptionRepository persists browser push endpoints.
type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, subscription *models.PushSubscription) error
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) error
	ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
}

type pushSubscriptionRepository struct {
	db *gorm.DB
}

// NewPushSubscriptionRepository constructs a push subscription repository.
func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

func (r *pushSubscriptionRepository) Upsert(ctx context.Context, subscription *models.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			UpdateAll: true,
		}).
		Create(subscription).Error
}

func (r *pushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID, endpoint string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pushSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	var subscriptions []models.PushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
