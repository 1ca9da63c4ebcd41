package dto

import "github.com/campusconnect/campus-api/internal/models"

// PrivacySettingsRequest updates the caller's privacy toggles. Every toggle
// maps to exactly one storage column, round-tripped verbatim.
type PrivacySettingsRequest struct {
	ShowOnlineStatus    *bool   `json:"show_online_status"`
	ShowLastSeen        *bool   `json:"show_last_seen"`
	ShowSchool          *bool   `json:"show_school"`
	ShowBirthday        *bool   `json:"show_birthday"`
	AllowFriendRequests *bool   `json:"allow_friend_requests"`
	AllowMessagesFrom   *string `json:"allow_messages_from" validate:"omitempty,oneof=everyone friends nobody"`
}

// PrivacySettingsResponse is the serialized settings record.
type PrivacySettingsResponse struct {
	UserID              string `json:"user_id"`
	ShowOnlineStatus    bool   `json:"show_online_status"`
	ShowLastSeen        bool   `json:"show_last_seen"`
	ShowSchool          bool   `json:"show_school"`
	ShowBirthday        bool   `json:"show_birthday"`
	AllowFriendRequests bool   `json:"allow_friend_requests"`
	AllowMessagesFrom   string `json:"allow_messages_from"`
}

// NewPrivacySettingsResponse converts a model into a DTO.
func NewPrivacySettingsResponse(model models.PrivacySettings) PrivacySettingsResponse {
	return PrivacySettingsResponse{
		UserID:              model.UserID,
		ShowOnlineStatus:    model.ShowOnlineStatus,
		ShowLastSeen:        model.ShowLastSeen,
		ShowSchool:          model.ShowSchool,
		ShowBirthday:        model.ShowBirthday,
		AllowFriendRequests: model.AllowFriendRequests,
		AllowMessagesFrom:   model.AllowMessagesFrom,
	}
}
