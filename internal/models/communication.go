package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification type enumeration.
const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeFriend  = "friend"
	NotificationTypeMention = "mention"
	NotificationTypeMessage = "message"
	NotificationTypeSystem  = "system"
)

// Message represents a direct message exchanged between two users. ClientRef
// carries the sender's temporary identifier so acks can retire the optimistic
// copy on the originating client.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   string    `gorm:"size:64;index" json:"sender_id"`
	ReceiverID string    `gorm:"size:64;index" json:"receiver_id"`
	ChannelKey string    `gorm:"size:160;index" json:"channel_key"`
	Content    string    `gorm:"type:text" json:"content"`
	ClientRef  string    `gorm:"size:64" json:"client_ref,omitempty"`
	Read       bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Notification targets a specific user. Metadata holds optional presentation
// context such as related_id, url and the sender's id/name/avatar.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`
	Type      string            `gorm:"size:32;not null" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Read      bool              `gorm:"not null;default:false;index" json:"read"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
