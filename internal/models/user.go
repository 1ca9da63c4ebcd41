package models

import "time"

// Friendship status enumeration.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusDeclined = "declined"
)

// Profile holds the public identity of a campus user. The user id itself is
// issued by the auth provider and stored as an opaque string.
type Profile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:64;uniqueIndex" json:"user_id"`
	Name      string     `gorm:"size:128" json:"name"`
	School    string     `gorm:"size:128" json:"school"`
	Bio       string     `gorm:"type:text" json:"bio"`
	AvatarURL string     `gorm:"size:512" json:"avatar_url"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Friendship is a directed request edge between two users. The pair is unique
// regardless of status, so a declined request must be removed before the same
// requester can try again.
type Friendship struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequesterID string    `gorm:"size:64;index;uniqueIndex:idx_friend_pair" json:"requester_id"`
	AddresseeID string    `gorm:"size:64;index;uniqueIndex:idx_friend_pair" json:"addressee_id"`
	Status      string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PrivacySettings stores per-user visibility toggles. Every toggle maps to
// exactly one column; there is no derived or combined state.
type PrivacySettings struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              string    `gorm:"size:64;uniqueIndex" json:"user_id"`
	ShowOnlineStatus    bool      `gorm:"not null;default:true" json:"show_online_status"`
	ShowLastSeen        bool      `gorm:"not null;default:true" json:"show_last_seen"`
	ShowSchool          bool      `gorm:"not null;default:true" json:"show_school"`
	ShowBirthday        bool      `gorm:"not null;default:false" json:"show_birthday"`
	AllowFriendRequests bool      `gorm:"not null;default:true" json:"allow_friend_requests"`
	AllowMessagesFrom   string    `gorm:"size:16;not null;default:friends" json:"allow_messages_from"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PushSubscription is a registered Web Push endpoint for one browser.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	Endpoint  string    `gorm:"size:1024;uniqueIndex" json:"endpoint"`
	P256dh    string    `gorm:"size:256" json:"p256dh"`
	Auth      string    `gorm:"size:128" json:"auth"`
	UserAgent string    `gorm:"size:256" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
