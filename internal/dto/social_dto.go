package dto

import (
	"time"

	"github.com/campusconnect/campus-api/internal/models"
)

// ProfileUpdateRequest updates the caller's own profile.
type ProfileUpdateRequest struct {
	Name     *string    `json:"name" validate:"omitempty,min=1,max=128"`
	School   *string    `json:"school" validate:"omitempty,max=128"`
	Bio      *string    `json:"bio" validate:"omitempty,max=2000"`
	Birthday *time.Time `json:"birthday"`
}

// ProfileResponse is the public view of a profile. Fields hidden by the
// owner's privacy settings are zeroed before serialization.
type ProfileResponse struct {
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	School    string     `json:"school,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewProfileResponse converts a model into a DTO.
func NewProfileResponse(model models.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:    model.UserID,
		Name:      model.Name,
		School:    model.School,
		Bio:       model.Bio,
		AvatarURL: model.AvatarURL,
		Birthday:  model.Birthday,
		CreatedAt: model.CreatedAt,
	}
}

// FriendRequestCreate initiates a friendship request.
type FriendRequestCreate struct {
	AddresseeID string `json:"addressee_id" validate:"required,max=64"`
}

// FriendshipResponse describes a friendship edge.
type FriendshipResponse struct {
	ID          uint      `json:"id"`
	RequesterID string    `json:"requester_id"`
	AddresseeID string    `json:"addressee_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFriendshipResponse converts a model into a DTO.
func NewFriendshipResponse(model models.Friendship) FriendshipResponse {
	return FriendshipResponse{
		ID:          model.ID,
		RequesterID: model.RequesterID,
		AddresseeID: model.AddresseeID,
		Status:      model.Status,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewFriendshipResponseSlice converts a slice of models into DTOs.
func NewFriendshipResponseSlice(items []models.Friendship) []FriendshipResponse {
	out := make([]FriendshipResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewFriendshipResponse(item))
	}
	return out
}

// PostCreateRequest creates a feed post.
type PostCreateRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=8000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=512"`
}

// PostCommentCreateRequest adds a comment to a post.
type PostCommentCreateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// PostCommentResponse is a serialized comment.
type PostCommentResponse struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PostResponse is a serialized feed post with aggregate counters.
type PostResponse struct {
	ID           uint                  `json:"id"`
	AuthorID     string                `json:"author_id"`
	Content      string                `json:"content"`
	ImageURL     string                `json:"image_url,omitempty"`
	LikeCount    int                   `json:"like_count"`
	CommentCount int                   `json:"comment_count"`
	LikedByMe    bool                  `json:"liked_by_me"`
	Comments     []PostCommentResponse `json:"comments,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// NewPostCommentResponse converts a model into a DTO.
func NewPostCommentResponse(model models.PostComment) PostCommentResponse {
	return PostCommentResponse{
		ID:        model.ID,
		PostID:    model.PostID,
		AuthorID:  model.AuthorID,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

// NewPostResponse converts a post with preloaded likes/comments into a DTO,
// computing the aggregates for the given viewer.
func NewPostResponse(model models.Post, viewerID string) PostResponse {
	response := PostResponse{
		ID:           model.ID,
		AuthorID:     model.AuthorID,
		Content:      model.Content,
		ImageURL:     model.ImageURL,
		LikeCount:    len(model.Likes),
		CommentCount: len(model.Comments),
		CreatedAt:    model.CreatedAt,
	}
	for _, like := range model.Likes {
		if like.UserID == viewerID {
			response.LikedByMe = true
			break
		}
	}
	if len(model.Comments) > 0 {
		comments := make([]PostCommentResponse, 0, len(model.Comments))
		for _, comment := range model.Comments {
			comments = append(comments, NewPostCommentResponse(comment))
		}
		response.Comments = comments
	}
	return response
}

// NewPostResponseSlice converts a slice of posts into DTOs.
func NewPostResponseSlice(items []models.Post, viewerID string) []PostResponse {
	out := make([]PostResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPostResponse(item, viewerID))
	}
	return out
}
