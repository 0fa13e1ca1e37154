package dto

// BroadcastNotificationRequest sends a system notification. An empty
// RecipientID addresses administrators.
type BroadcastNotificationRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Message     string `json:"message" validate:"required,max=2000"`
	RecipientID string `json:"recipient_id,omitempty" validate:"omitempty,uuid"`
}

// UnreadCountResponse wraps the unread counter.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// MarkAllReadResponse reports how many notifications changed state.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
