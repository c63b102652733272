package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// MeetingRepository persists team meetings.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting models.Meeting) (models.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (models.Meeting, error)
	ListMeetingsForTeam(ctx context.Context, teamID string) ([]models.Meeting, error)
	// TransitionMeeting moves a meeting from one status to another. It
	// returns ErrStateConflict when the meeting is not in status from.
	TransitionMeeting(ctx context.Context, meetingID string, from, to models.MeetingStatus, at time.Time) (models.Meeting, error)
	// DueForReminder lists scheduled, unreminded meetings starting in (from, to].
	DueForReminder(ctx context.Context, from, to time.Time) ([]models.Meeting, error)
	// MarkReminderSent flips reminder_sent and reports whether this call did it.
	MarkReminderSent(ctx context.Context, meetingID string) (bool, error)
}

// MeetingRepo is a sqlx implementation of MeetingRepository.
type MeetingRepo struct {
	db *sqlx.DB
}

// NewMeetingRepo constructs a MeetingRepo.
func NewMeetingRepo(db *sqlx.DB) *MeetingRepo {
	return &MeetingRepo{db: db}
}

const meetingColumns = `id, team_id, title, description, host_id, scheduled_at, status, started_at, ended_at, reminder_sent, created_at`

// CreateMeeting inserts a meeting and its participants.
func (r *MeetingRepo) CreateMeeting(ctx context.Context, meeting models.Meeting) (models.Meeting, error) {
	if meeting.ID == "" {
		meeting.ID = NewID()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Meeting{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meetings (id, team_id, title, description, host_id, scheduled_at, status, reminder_sent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)`,
		meeting.ID, meeting.TeamID, meeting.Title, meeting.Description, meeting.HostID, meeting.ScheduledAt, meeting.Status, meeting.CreatedAt); err != nil {
		return models.Meeting{}, err
	}
	for i, userID := range meeting.ParticipantIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meeting_participants (meeting_id, user_id, position) VALUES ($1, $2, $3)
            ON CONFLICT DO NOTHING`, meeting.ID, userID, i); err != nil {
			return models.Meeting{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Meeting{}, err
	}
	return r.GetMeeting(ctx, meeting.ID)
}

// GetMeeting fetches a meeting with its participants.
func (r *MeetingRepo) GetMeeting(ctx context.Context, meetingID string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, `SELECT `+meetingColumns+` FROM meetings WHERE id=$1`, meetingID); err != nil {
		return models.Meeting{}, notFound(err, ErrMeetingNotFound)
	}
	meetings := []models.Meeting{meeting}
	if err := r.hydrate(ctx, meetings); err != nil {
		return models.Meeting{}, err
	}
	return meetings[0], nil
}

// ListMeetingsForTeam returns the team's meetings ordered by start time.
func (r *MeetingRepo) ListMeetingsForTeam(ctx context.Context, teamID string) ([]models.Meeting, error) {
	meetings := []models.Meeting{}
	if err := r.db.SelectContext(ctx, &meetings, `SELECT `+meetingColumns+` FROM meetings WHERE team_id=$1 ORDER BY scheduled_at ASC, id ASC`, teamID); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// TransitionMeeting is a conditional update on the current status.
func (r *MeetingRepo) TransitionMeeting(ctx context.Context, meetingID string, from, to models.MeetingStatus, at time.Time) (models.Meeting, error) {
	query := `UPDATE meetings SET status=$3, started_at=$4 WHERE id=$1 AND status=$2`
	if to == models.MeetingEnded {
		query = `UPDATE meetings SET status=$3, ended_at=$4 WHERE id=$1 AND status=$2`
	}
	res, err := r.db.ExecContext(ctx, query, meetingID, from, to, at)
	if err != nil {
		return models.Meeting{}, notFound(err, ErrMeetingNotFound)
	}
	if err := rowsAffected(res, ErrStateConflict); err != nil {
		if _, getErr := r.GetMeeting(ctx, meetingID); getErr != nil {
			return models.Meeting{}, getErr
		}
		return models.Meeting{}, err
	}
	return r.GetMeeting(ctx, meetingID)
}

// DueForReminder lists meetings whose reminder window has opened.
func (r *MeetingRepo) DueForReminder(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	meetings := []models.Meeting{}
	if err := r.db.SelectContext(ctx, &meetings, `SELECT `+meetingColumns+` FROM meetings
        WHERE status=$1 AND reminder_sent = FALSE AND scheduled_at > $2 AND scheduled_at <= $3
        ORDER BY scheduled_at ASC`, models.MeetingScheduled, from, to); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// MarkReminderSent sets reminder_sent only if it was unset.
func (r *MeetingRepo) MarkReminderSent(ctx context.Context, meetingID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE meetings SET reminder_sent = TRUE WHERE id=$1 AND reminder_sent = FALSE`, meetingID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

func (r *MeetingRepo) hydrate(ctx context.Context, meetings []models.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	ids := make([]string, len(meetings))
	index := make(map[string]int, len(meetings))
	for i, m := range meetings {
		ids[i] = m.ID
		index[m.ID] = i
		meetings[i].ParticipantIDs = []string{}
	}
	var rows []struct {
		MeetingID string `db:"meeting_id"`
		UserID    string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT meeting_id, user_id FROM meeting_participants
        WHERE meeting_id = ANY($1::uuid[]) ORDER BY position ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.MeetingID]
		meetings[i].ParticipantIDs = append(meetings[i].ParticipantIDs, row.UserID)
	}
	return nil
}
