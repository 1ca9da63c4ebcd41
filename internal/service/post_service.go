package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

// ErrPostNotFound indicates the target post does not exist.
var ErrPostNotFound = errors.New("post not found")

// PostService manages feed posts, likes and comments.
type PostService interface {
	Create(ctx context.Context, authorID string, payload dto.PostCreateRequest) (dto.PostResponse, error)
	Feed(ctx context.Context, viewerID string, limit, offset int) ([]dto.PostResponse, error)
	Get(ctx context.Context, viewerID string, id uint) (dto.PostResponse, error)
	Delete(ctx context.Context, authorID string, id uint) error
	Like(ctx context.Context, userID string, postID uint) (dto.PostResponse, error)
	Unlike(ctx context.Context, userID string, postID uint) (dto.PostResponse, error)
	Comment(ctx context.Context, authorID string, postID uint, payload dto.PostCommentCreateRequest) (dto.PostCommentResponse, error)
}

type postService struct {
	repo      repository.PostRepository
	friends   FriendService
	profiles  repository.ProfileRepository
	notifier  NotificationPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewPostService constructs a post service.
func NewPostService(repo repository.PostRepository, friends FriendService, profiles repository.ProfileRepository, notifier NotificationPublisher, validate *validator.Validate, logger zerolog.Logger) PostService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &postService{
		repo:      repo,
		friends:   friends,
		profiles:  profiles,
		notifier:  notifier,
		validator: validate,
		sanitizer: sanitizer,
		logger:    logger.With().Str("component", "post_service").Logger(),
	}
}

func (s *postService) Create(ctx context.Context, authorID string, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.PostResponse{}, errors.New("post content empty after sanitization")
	}

	post := models.Post{
		AuthorID: authorID,
		Content:  clean,
		ImageURL: payload.ImageURL,
	}
	if err := s.repo.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	return dto.NewPostResponse(post, authorID), nil
}

// Feed returns the viewer's own posts plus their accepted friends' posts.
func (s *postService) Feed(ctx context.Context, viewerID string, limit, offset int) ([]dto.PostResponse, error) {
	authorIDs := []string{viewerID}
	if s.friends != nil {
		friendIDs, err := s.friends.FriendIDs(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		authorIDs = append(authorIDs, friendIDs...)
	}

	posts, err := s.repo.ListFeed(ctx, authorIDs, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewPostResponseSlice(posts, viewerID), nil
}

func (s *postService) Get(ctx context.Context, viewerID string, id uint) (dto.PostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, ErrPostNotFound
		}
		return dto.PostResponse{}, err
	}
	return dto.NewPostResponse(post, viewerID), nil
}

func (s *postService) Delete(ctx context.Context, authorID string, id uint) error {
	if err := s.repo.Delete(ctx, id, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

func (s *postService) Like(ctx context.Context, userID string, postID uint) (dto.PostResponse, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, ErrPostNotFound
		}
		return dto.PostResponse{}, err
	}

	like := models.PostLike{PostID: postID, UserID: userID}
	if err := s.repo.AddLike(ctx, &like); err != nil {
		if errors.Is(err, repository.ErrAlreadyLiked) {
			// Liking twice is a no-op, not an error.
			return dto.NewPostResponse(post, userID), nil
		}
		return dto.PostResponse{}, err
	}

	if post.AuthorID != userID {
		s.notify(ctx, post.AuthorID, userID, models.NotificationTypeLike, "liked your post", postID)
	}

	return s.Get(ctx, userID, postID)
}

func (s *postService) Unlike(ctx context.Context, userID string, postID uint) (dto.PostResponse, error) {
	if err := s.repo.RemoveLike(ctx, postID, userID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.PostResponse{}, err
	}
	return s.Get(ctx, userID, postID)
}

func (s *postService) Comment(ctx context.Context, authorID string, postID uint, payload dto.PostCommentCreateRequest) (dto.PostCommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostCommentResponse{}, err
	}

	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostCommentResponse{}, ErrPostNotFound
		}
		return dto.PostCommentResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.PostCommentResponse{}, errors.New("comment content empty after sanitization")
	}

	comment := models.PostComment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  clean,
	}
	if err := s.repo.AddComment(ctx, &comment); err != nil {
		return dto.PostCommentResponse{}, err
	}

	if post.AuthorID != authorID {
		s.notify(ctx, post.AuthorID, authorID, models.NotificationTypeComment, "commented on your post", postID)
	}

	return dto.NewPostCommentResponse(comment), nil
}

func (s *postService) notify(ctx context.Context, userID, senderID, kind, message string, postID uint) {
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
		UserID:    userID,
		Type:      kind,
		Message:   message,
		RelatedID: fmt.Sprintf("%d", postID),
		URL:       fmt.Sprintf("/posts/%d", postID),
		Sender:    sender,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish post notification")
	}
}
