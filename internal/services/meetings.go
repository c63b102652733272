package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/apperr"
	"collab-service/internal/clock"
	"collab-service/internal/logging"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
	"collab-service/internal/scheduler"
)

// NewMeeting is the input to meeting scheduling.
type NewMeeting struct {
	TeamID         string    `validate:"required"`
	Title          string    `validate:"required,max=200"`
	Description    string    `validate:"max=5000"`
	ScheduledAt    time.Time
	ParticipantIDs []string  `validate:"dive,required"`
}

// MeetingService manages team meetings and their reminders.
type MeetingService struct {
	meetings repositories.MeetingRepository
	resolver *access.Resolver
	notifier *NotificationService
	pub      publisher
	clock    clock.Clock
	log      *zap.Logger
}

// NewMeetingService constructs a MeetingService.
func NewMeetingService(meetings repositories.MeetingRepository, resolver *access.Resolver, notifier *NotificationService,
	broadcaster Broadcaster, clk clock.Clock, logger *zap.Logger) *MeetingService {
	return &MeetingService{
		meetings: meetings,
		resolver: resolver,
		notifier: notifier,
		pub:      publisher{b: broadcaster, log: logger},
		clock:    clk,
		log:      logger,
	}
}

// Schedule creates a meeting hosted by the requester.
func (s *MeetingService) Schedule(ctx context.Context, requesterID string, in NewMeeting) (models.Meeting, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Meeting{}, err
	}
	if in.ScheduledAt.IsZero() {
		return models.Meeting{}, apperr.New(apperr.InvalidInput, "scheduled_at is required")
	}
	scope, err := s.resolver.Team(ctx, in.TeamID, requesterID, access.RequireTeamMember)
	if err != nil {
		return models.Meeting{}, err
	}
	participants := without(in.ParticipantIDs, requesterID)
	for _, id := range participants {
		if !access.IsTeamMember(scope.Team, id) {
			return models.Meeting{}, apperr.New(apperr.NotTeamMember, "participant is not a member of this team")
		}
	}
	meeting, err := s.meetings.CreateMeeting(ctx, models.Meeting{
		TeamID:         in.TeamID,
		Title:          in.Title,
		Description:    in.Description,
		HostID:         requesterID,
		ParticipantIDs: participants,
		ScheduledAt:    in.ScheduledAt.UTC(),
		Status:         models.MeetingScheduled,
		CreatedAt:      s.clock.Now(),
	})
	if err != nil {
		return models.Meeting{}, classify("schedule meeting", err)
	}
	s.notify(ctx, meeting, requesterID, "Meeting scheduled", meeting.Title+" at "+meeting.ScheduledAt.Format(time.RFC3339))
	s.pub.publish(models.TeamTopic(meeting.TeamID), models.EventMeetingSchedule, meeting)
	return meeting, nil
}

// ListForTeam returns the team's meetings ordered by start time.
func (s *MeetingService) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Meeting, error) {
	if _, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireTeamMember); err != nil {
		return nil, err
	}
	meetings, err := s.meetings.ListMeetingsForTeam(ctx, teamID)
	return meetings, classify("list meetings", err)
}

// Start moves a scheduled meeting to live.
func (s *MeetingService) Start(ctx context.Context, meetingID, requesterID string) (models.Meeting, error) {
	meeting, err := s.transition(ctx, meetingID, requesterID, models.MeetingScheduled, models.MeetingLive)
	if err != nil {
		return models.Meeting{}, err
	}
	s.notify(ctx, meeting, requesterID, "Meeting started", meeting.Title+" is live now")
	s.pub.publish(models.TeamTopic(meeting.TeamID), models.EventMeetingStarted, meeting)
	return meeting, nil
}

// End moves a live meeting to ended.
func (s *MeetingService) End(ctx context.Context, meetingID, requesterID string) (models.Meeting, error) {
	meeting, err := s.transition(ctx, meetingID, requesterID, models.MeetingLive, models.MeetingEnded)
	if err != nil {
		return models.Meeting{}, err
	}
	s.pub.publish(models.TeamTopic(meeting.TeamID), models.EventMeetingEnded, meeting)
	return meeting, nil
}

func (s *MeetingService) transition(ctx context.Context, meetingID, requesterID string, from, to models.MeetingStatus) (models.Meeting, error) {
	meeting, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, classify("load meeting", err)
	}
	scope, err := s.resolver.Team(ctx, meeting.TeamID, requesterID, access.RequireTeamMember)
	if err != nil {
		return models.Meeting{}, err
	}
	if meeting.HostID != requesterID && !access.CanAdminister(scope.Team, requesterID) {
		return models.Meeting{}, apperr.New(apperr.InsufficientRole, "only the host or an admin can do this")
	}
	updated, err := s.meetings.TransitionMeeting(ctx, meetingID, from, to, s.clock.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrStateConflict) {
			return models.Meeting{}, apperr.Wrap(apperr.InvalidState, "meeting is not "+string(from), err)
		}
		return models.Meeting{}, classify("update meeting", err)
	}
	return updated, nil
}

func (s *MeetingService) notify(ctx context.Context, meeting models.Meeting, actorID, title, body string) {
	related := meeting.ID
	s.notifier.Notify(ctx, without(meeting.Audience(), actorID), models.Notification{
		Type:      models.NotifyMeeting,
		Title:     title,
		Body:      body,
		RelatedID: &related,
	})
}

// SendReminders notifies the audience of every scheduled meeting starting
// within lead of now. Each meeting is reminded at most once.
func (s *MeetingService) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.clock.Now()
	due, err := s.meetings.DueForReminder(ctx, now, now.Add(lead))
	if err != nil {
		return 0, classify("find due meetings", err)
	}
	sent := 0
	for _, meeting := range due {
		claimed, err := s.meetings.MarkReminderSent(ctx, meeting.ID)
		if err != nil {
			logging.ReportSideEffect(s.log, "mark reminder sent", err, zap.String("meeting_id", meeting.ID))
			continue
		}
		if !claimed {
			continue
		}
		s.notify(ctx, meeting, "", "Meeting starting soon",
			meeting.Title+" starts at "+meeting.ScheduledAt.Format(time.RFC3339))
		sent++
	}
	return sent, nil
}

// ReminderJob returns the scheduled job that calls SendReminders.
func (s *MeetingService) ReminderJob(interval, lead time.Duration) scheduler.Job {
	return scheduler.Job{
		Name:     "meeting-reminders",
		Interval: interval,
		Run: func(ctx context.Context) error {
			sent, err := s.SendReminders(ctx, lead)
			if err != nil {
				return err
			}
			if sent > 0 {
				s.log.Info("meeting reminders sent", zap.Int("count", sent), zap.Duration("lead", lead))
			}
			return nil
		},
	}
}
