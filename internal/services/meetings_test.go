package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/scheduler"
	"collab-service/internal/services"
)

func TestScheduleMeeting(t *testing.T) {
	f := newFixture(t)
	owner, alice, stranger := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "stranger")
	team := f.team(t, owner, alice)
	at := t0.Add(2 * time.Hour)

	_, err := f.meetings.Schedule(f.ctx, owner.ID, services.NewMeeting{TeamID: team.ID, Title: "Standup"})
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
	_, err = f.meetings.Schedule(f.ctx, owner.ID, services.NewMeeting{TeamID: team.ID, Title: "Standup", ScheduledAt: at, ParticipantIDs: []string{stranger.ID}})
	assert.True(t, apperr.Is(err, apperr.NotTeamMember))

	meeting, err := f.meetings.Schedule(f.ctx, owner.ID, services.NewMeeting{
		TeamID:         team.ID,
		Title:          "Standup",
		ScheduledAt:    at,
		ParticipantIDs: []string{owner.ID, alice.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, meeting.Status)
	assert.Equal(t, owner.ID, meeting.HostID)
	assert.Equal(t, []string{alice.ID}, meeting.ParticipantIDs)

	assert.Empty(t, f.inbox(t, owner.ID, models.NotifyMeeting))
	got := f.inbox(t, alice.ID, models.NotifyMeeting)
	require.Len(t, got, 1)
	assert.Equal(t, "Meeting scheduled", got[0].Title)
	assert.Len(t, f.bus.named(models.EventMeetingSchedule), 1)

	list, err := f.meetings.ListForTeam(f.ctx, team.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMeetingLifecycle(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	team := f.team(t, owner, alice, bob)
	meeting, err := f.meetings.Schedule(f.ctx, alice.ID, services.NewMeeting{TeamID: team.ID, Title: "Retro", ScheduledAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.meetings.End(f.ctx, meeting.ID, alice.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	_, err = f.meetings.Start(f.ctx, meeting.ID, bob.ID)
	assert.True(t, apperr.Is(err, apperr.InsufficientRole))

	f.clock.Advance(time.Hour)
	live, err := f.meetings.Start(f.ctx, meeting.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingLive, live.Status)
	require.NotNil(t, live.StartedAt)
	assert.Equal(t, t0.Add(time.Hour), *live.StartedAt)

	_, err = f.meetings.Start(f.ctx, meeting.ID, alice.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidState))

	ended, err := f.meetings.End(f.ctx, meeting.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)

	assert.Len(t, f.bus.named(models.EventMeetingStarted), 1)
	assert.Len(t, f.bus.named(models.EventMeetingEnded), 1)

	_, err = f.meetings.Start(f.ctx, "missing", owner.ID)
	assert.True(t, apperr.Is(err, apperr.MeetingNotFound))
}

func TestRemindersAreSentAtMostOnce(t *testing.T) {
	f := newFixture(t)
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	team := f.team(t, owner, alice)
	schedule := func(title string, at time.Time) models.Meeting {
		m, err := f.meetings.Schedule(f.ctx, owner.ID, services.NewMeeting{
			TeamID: team.ID, Title: title, ScheduledAt: at, ParticipantIDs: []string{alice.ID},
		})
		require.NoError(t, err)
		return m
	}
	soon := schedule("soon", t0.Add(10*time.Minute))
	schedule("later", t0.Add(2*time.Hour))
	started := schedule("started", t0.Add(5*time.Minute))
	_, err := f.meetings.Start(f.ctx, started.ID, owner.ID)
	require.NoError(t, err)

	sent, err := f.meetings.SendReminders(f.ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.meetings.SendReminders(f.ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, sent)

	var reminders []models.Notification
	for _, n := range f.inbox(t, alice.ID, models.NotifyMeeting) {
		if n.Title == "Meeting starting soon" {
			reminders = append(reminders, n)
		}
	}
	require.Len(t, reminders, 1)
	require.NotNil(t, reminders[0].RelatedID)
	assert.Equal(t, soon.ID, *reminders[0].RelatedID)

	hostReminders := 0
	for _, n := range f.inbox(t, owner.ID, models.NotifyMeeting) {
		if n.Title == "Meeting starting soon" {
			hostReminders++
		}
	}
	assert.Equal(t, 1, hostReminders)
}

func TestReminderJobRunsThroughScheduler(t *testing.T) {
	f := newFixture(t)
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	team := f.team(t, owner, alice)
	_, err := f.meetings.Schedule(f.ctx, owner.ID, services.NewMeeting{
		TeamID: team.ID, Title: "Planning", ScheduledAt: t0.Add(90 * time.Minute), ParticipantIDs: []string{alice.ID},
	})
	require.NoError(t, err)

	job := f.meetings.ReminderJob(time.Minute, 15*time.Minute)
	assert.Equal(t, "meeting-reminders", job.Name)
	runner := scheduler.NewRunner(zap.NewNop(), f.clock)

	runner.RunOnce(job)
	assert.Len(t, f.inbox(t, alice.ID, models.NotifyMeeting), 1)

	f.clock.Advance(80 * time.Minute)
	runner.RunOnce(job)
	runner.RunOnce(job)
	assert.Len(t, f.inbox(t, alice.ID, models.NotifyMeeting), 2)
}
