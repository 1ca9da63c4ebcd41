package dto

import (
	"time"

	"github.com/campusconnect/campus-api/internal/models"
)

// MessageSendRequest is the payload clients push over the conversation
// websocket. ClientRef is the sender's temporary id, echoed back in the ack so
// the client can retire its optimistic copy.
type MessageSendRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,max=64"`
	Content    string `json:"content" validate:"required,min=1,max=4000"`
	ClientRef  string `json:"client_ref" validate:"omitempty,max=64"`
}

// MessageHistoryQuery filters a conversation history request.
type MessageHistoryQuery struct {
	PeerID string     `query:"peer_id" validate:"required,max=64"`
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// MessageResponse is the serialized representation of a direct message.
type MessageResponse struct {
	ID         uint      `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	ChannelKey string    `json:"channel_key"`
	Content    string    `json:"content"`
	ClientRef  string    `json:"client_ref,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		ChannelKey: message.ChannelKey,
		Content:    message.Content,
		ClientRef:  message.ClientRef,
		Read:       message.Read,
		CreatedAt:  message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// ConversationSummaryResponse describes one entry in the conversation list.
type ConversationSummaryResponse struct {
	PeerID      string           `json:"peer_id"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	UnreadCount int64            `json:"unread_count"`
}

// TypingStateResponse reports the counterpart's current composing state.
type TypingStateResponse struct {
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}
