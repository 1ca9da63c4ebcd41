package models

import "time"

// Post is a feed entry authored by a user. Likes and Comments are preloaded
// by the repository when aggregate counters are needed.
type Post struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	AuthorID  string        `gorm:"size:64;index" json:"author_id"`
	Content   string        `gorm:"type:text" json:"content"`
	ImageURL  string        `gorm:"size:512" json:"image_url"`
	Likes     []PostLike    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes,omitempty"`
	Comments  []PostComment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PostLike records one user liking one post. The pair is unique so a like is
// naturally idempotent at the storage layer.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;uniqueIndex:idx_post_like" json:"post_id"`
	UserID    string    `gorm:"size:64;uniqueIndex:idx_post_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostComment is a flat comment on a post.
type PostComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index" json:"post_id"`
	AuthorID  string    `gorm:"size:64;index" json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
