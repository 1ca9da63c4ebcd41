package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
)

// FriendRepository persists friendship edges.
type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	FindByPair(ctx context.Context, userA, userB string) (models.Friendship, error)
	FindByID(ctx context.Context, id uint) (models.Friendship, error)
	UpdateStatus(ctx context.Context, id uint, status string) (models.Friendship, error)
	Delete(ctx context.Context, id uint) error
	ListForUser(ctx context.Context, userID, status string) ([]models.Friendship, error)
	ListPendingFor(ctx context.Context, addresseeID string) ([]models.Friendship, error)
}

type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository constructs a friendship repository backed by GORM.
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

func (r *friendRepository) FindByPair(ctx context.Context, userA, userB string) (models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA).
		First(&friendship).Error
	if err != nil {
		return models.Friendship{}, err
	}
	return friendship, nil
}

func (r *friendRepository) FindByID(ctx context.Context, id uint) (models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).First(&friendship, id).Error; err != nil {
		return models.Friendship{}, err
	}
	return friendship, nil
}

func (r *friendRepository) UpdateStatus(ctx context.Context, id uint, status string) (models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).First(&friendship, id).Error; err != nil {
		return models.Friendship{}, err
	}

	friendship.Status = status
	if err := r.db.WithContext(ctx).Save(&friendship).Error; err != nil {
		return models.Friendship{}, err
	}
	return friendship, nil
}

func (r *friendRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Friendship{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *friendRepository) ListForUser(ctx context.Context, userID, status string) ([]models.Friendship, error) {
	query := r.db.WithContext(ctx).
		Where("requester_id = ? OR addressee_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var friendships []models.Friendship
	if err := query.Order("updated_at DESC").Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

func (r *friendRepository) ListPendingFor(ctx context.Context, addresseeID string) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", addresseeID, models.FriendStatusPending).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}
