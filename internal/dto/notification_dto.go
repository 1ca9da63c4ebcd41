package dto

import (
	"time"

	"github.com/campusconnect/campus-api/internal/models"
)

// NotificationSender identifies who triggered a notification.
type NotificationSender struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// NotificationCreateRequest describes the payload to publish a notification.
type NotificationCreateRequest struct {
	UserID    string              `json:"user_id" validate:"required,max=64"`
	Type      string              `json:"type" validate:"required,oneof=like comment friend mention message system"`
	Message   string              `json:"message" validate:"required,min=1,max=2000"`
	RelatedID string              `json:"related_id" validate:"omitempty,max=64"`
	URL       string              `json:"url" validate:"omitempty,max=512"`
	Sender    *NotificationSender `json:"sender,omitempty"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                `json:"id"`
	UserID    string              `json:"user_id"`
	Type      string              `json:"type"`
	Message   string              `json:"message"`
	Read      bool                `json:"read"`
	RelatedID string              `json:"related_id,omitempty"`
	URL       string              `json:"url,omitempty"`
	Sender    *NotificationSender `json:"sender,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO, lifting the
// optional presentation fields out of the metadata map.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if model.Metadata == nil {
		return response
	}
	if v, ok := model.Metadata["related_id"].(string); ok {
		response.RelatedID = v
	}
	if v, ok := model.Metadata["url"].(string); ok {
		response.URL = v
	}
	senderID, _ := model.Metadata["sender_id"].(string)
	if senderID != "" {
		sender := &NotificationSender{ID: senderID}
		if v, ok := model.Metadata["sender_name"].(string); ok {
			sender.Name = v
		}
		if v, ok := model.Metadata["sender_avatar"].(string); ok {
			sender.Avatar = v
		}
		response.Sender = sender
	}

	return response
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationGroupsResponse buckets notifications by recency for display.
type NotificationGroupsResponse struct {
	Today     []NotificationResponse `json:"today"`
	Yesterday []NotificationResponse `json:"yesterday"`
	Older     []NotificationResponse `json:"older"`
}

// UnreadCountResponse carries the derived unread badge value.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}
