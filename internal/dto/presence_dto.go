package dto

import "time"

// Presence display states. Unknown means the user has never been observed,
// which is distinct from a confirmed offline with a last-seen value.
const (
	PresenceStateOnline  = "online"
	PresenceStateOffline = "offline"
	PresenceStateUnknown = "unknown"
)

// PresenceStatusResponse reports one user's presence to the UI.
type PresenceStatusResponse struct {
	UserID     string     `json:"user_id"`
	State      string     `json:"state"`
	LastActive *time.Time `json:"last_active,omitempty"`
}

// NewPresenceStatusResponse derives the display state: online suppresses any
// last-seen value, offline requires one, and absence of both is unknown.
func NewPresenceStatusResponse(userID string, online bool, lastActive *time.Time) PresenceStatusResponse {
	switch {
	case online:
		return PresenceStatusResponse{UserID: userID, State: PresenceStateOnline}
	case lastActive != nil:
		return PresenceStatusResponse{UserID: userID, State: PresenceStateOffline, LastActive: lastActive}
	default:
		return PresenceStatusResponse{UserID: userID, State: PresenceStateUnknown}
	}
}
