package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
)

// MessageRepository persists direct messages.
type MessageRepository interface {
	Save(ctx context.Context, message *models.Message) error
	ListByChannel(ctx context.Context, channelKey string, before time.Time, limit int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, channelKey, readerID string) (int64, error)
	CountUnread(ctx context.Context, receiverID string) (int64, error)
	CountUnreadByChannel(ctx context.Context, channelKey, receiverID string) (int64, error)
	LatestByChannel(ctx context.Context, channelKey string) (models.Message, error)
	ListChannelsForUser(ctx context.Context, userID string) ([]string, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListByChannel(ctx context.Context, channelKey string, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("channel_key = ?", channelKey)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, channelKey, readerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel_key = ? AND receiver_id = ? AND read = ?", channelKey, readerID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountUnreadByChannel(ctx context.Context, channelKey, receiverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel_key = ? AND receiver_id = ? AND read = ?", channelKey, receiverID, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) LatestByChannel(ctx context.Context, channelKey string) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("channel_key = ?", channelKey).Order("created_at DESC").First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) ListChannelsForUser(ctx context.Context, userID string) ([]string, error) {
	var channels []string
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Distinct("channel_key").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Pluck("channel_key", &channels).Error
	return channels, err
}
