package models

import "time"

// NotificationType names what produced a notification.
type NotificationType string

const (
	NotifyMessage    NotificationType = "message"
	NotifyTask       NotificationType = "task"
	NotifyMeeting    NotificationType = "meeting"
	NotifyTeamInvite NotificationType = "team_invite"
	NotifyMention    NotificationType = "mention"
)

// Notification is a per-recipient inbox entry. Only Read changes after creation.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	RelatedID   *string          `db:"related_id" json:"related_id,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
