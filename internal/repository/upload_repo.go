package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
)

// UploadRepository persists upload audit records.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.UploadRecord, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs an upload repository backed by GORM.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.UploadRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
