package models

import "time"

// MeetingStatus is a meeting's lifecycle state.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingLive      MeetingStatus = "live"
	MeetingEnded     MeetingStatus = "ended"
)

// Meeting is a scheduled call inside a team.
type Meeting struct {
	ID             string        `db:"id" json:"id"`
	TeamID         string        `db:"team_id" json:"team_id"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	HostID         string        `db:"host_id" json:"host_id"`
	ParticipantIDs []string      `db:"-" json:"participant_ids"`
	ScheduledAt    time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status         MeetingStatus `db:"status" json:"status"`
	StartedAt      *time.Time    `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time    `db:"ended_at" json:"ended_at,omitempty"`
	ReminderSent   bool          `db:"reminder_sent" json:"reminder_sent"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Audience returns the host plus every participant, without duplicates.
func (m Meeting) Audience() []string {
	ids := []string{m.HostID}
	for _, id := range m.ParticipantIDs {
		if id != m.HostID {
			ids = append(ids, id)
		}
	}
	return ids
}
