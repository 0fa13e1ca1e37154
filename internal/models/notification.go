package models

import "time"

// NotificationType categorises how a notification was produced.
type NotificationType string

const (
	NotificationNewReport    NotificationType = "new_report"
	NotificationStatusUpdate NotificationType = "status_update"
	NotificationAssignment   NotificationType = "assignment"
	NotificationSystem       NotificationType = "system"
)

// Notification is an append-only message; only its read flag mutates.
// A nil RecipientID addresses every administrator.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	ReportID    *string          `db:"report_id" json:"report_id,omitempty"`
	RecipientID *string          `db:"recipient_id" json:"recipient_id,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
}

// NotificationScope is the visible set of an actor. All covers every row;
// otherwise only rows addressed to RecipientID are visible.
type NotificationScope struct {
	All         bool
	RecipientID string
	OnlyUnread  bool
}

// Visible reports whether n falls inside the scope.
func (s NotificationScope) Visible(n Notification) bool {
	if s.All {
		return true
	}
	return n.RecipientID != nil && *n.RecipientID == s.RecipientID
}
