package models

import "time"

// UploadRecord is the audit row for a stored image asset.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	URL       string    `gorm:"size:512" json:"url"`
	MimeType  string    `gorm:"size:64" json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `gorm:"size:64;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
