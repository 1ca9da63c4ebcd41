package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
)

// ErrAlreadyLiked indicates the user already likes the post.
var ErrAlreadyLiked = errors.New("post already liked")

// PostRepository persists feed posts, likes and comments.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (models.Post, error)
	ListFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error)
	Delete(ctx context.Context, id uint, authorID string) error
	AddLike(ctx context.Context, like *models.PostLike) error
	RemoveLike(ctx context.Context, postID uint, userID string) error
	AddComment(ctx context.Context, comment *models.PostComment) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a post repository backed by GORM.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&post, id).Error
	if err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) ListFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	if len(authorIDs) > 0 {
		query = query.Where("author_id IN ?", authorIDs)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint, authorID string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Post{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) AddLike(ctx context.Context, like *models.PostLike) error {
	var existing models.PostLike
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", like.PostID, like.UserID).
		First(&existing).Error
	if err == nil {
		return ErrAlreadyLiked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *postRepository) RemoveLike(ctx context.Context, postID uint, userID string) error {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.PostComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}
