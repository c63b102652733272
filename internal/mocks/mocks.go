package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"collab-service/internal/models"
	"collab-service/internal/services"
)

func team(args mock.Arguments) models.Team {
	var t models.Team
	if val := args.Get(0); val != nil {
		t = val.(models.Team)
	}
	return t
}

func channel(args mock.Arguments) models.Channel {
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch
}

func message(args mock.Arguments) models.Message {
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg
}

func task(args mock.Arguments) models.Task {
	var t models.Task
	if val := args.Get(0); val != nil {
		t = val.(models.Task)
	}
	return t
}

func meeting(args mock.Arguments) models.Meeting {
	var m models.Meeting
	if val := args.Get(0); val != nil {
		m = val.(models.Meeting)
	}
	return m
}

type TeamServiceMock struct {
	mock.Mock
}

func (m *TeamServiceMock) Create(ctx context.Context, ownerID string, in services.NewTeam) (models.Team, error) {
	args := m.Called(ctx, ownerID, in)
	return team(args), args.Error(1)
}

func (m *TeamServiceMock) Get(ctx context.Context, teamID, requesterID string) (models.Team, error) {
	args := m.Called(ctx, teamID, requesterID)
	return team(args), args.Error(1)
}

func (m *TeamServiceMock) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	args := m.Called(ctx, userID)
	var teams []models.Team
	if val := args.Get(0); val != nil {
		teams = val.([]models.Team)
	}
	return teams, args.Error(1)
}

func (m *TeamServiceMock) Update(ctx context.Context, teamID, requesterID string, name, description *string) (models.Team, error) {
	args := m.Called(ctx, teamID, requesterID, name, description)
	return team(args), args.Error(1)
}

func (m *TeamServiceMock) Delete(ctx context.Context, teamID, requesterID string) error {
	args := m.Called(ctx, teamID, requesterID)
	return args.Error(0)
}

func (m *TeamServiceMock) AddMember(ctx context.Context, teamID, requesterID, email string, role models.Role) (models.Team, error) {
	args := m.Called(ctx, teamID, requesterID, email, role)
	return team(args), args.Error(1)
}

func (m *TeamServiceMock) RemoveMember(ctx context.Context, teamID, requesterID, targetID string) (models.Team, error) {
	args := m.Called(ctx, teamID, requesterID, targetID)
	return team(args), args.Error(1)
}

func (m *TeamServiceMock) UpdateMemberRole(ctx context.Context, teamID, requesterID, targetID string, role models.Role) (models.Team, error) {
	args := m.Called(ctx, teamID, requesterID, targetID, role)
	return team(args), args.Error(1)
}

type ChannelServiceMock struct {
	mock.Mock
}

func (m *ChannelServiceMock) Create(ctx context.Context, requesterID string, in services.NewChannel) (models.Channel, error) {
	args := m.Called(ctx, requesterID, in)
	return channel(args), args.Error(1)
}

func (m *ChannelServiceMock) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Channel, error) {
	args := m.Called(ctx, teamID, requesterID)
	var list []models.Channel
	if val := args.Get(0); val != nil {
		list = val.([]models.Channel)
	}
	return list, args.Error(1)
}

func (m *ChannelServiceMock) Get(ctx context.Context, channelID, requesterID string) (*models.Channel, error) {
	args := m.Called(ctx, channelID, requesterID)
	var ch *models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(*models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelServiceMock) Update(ctx context.Context, channelID, requesterID string, patch models.ChannelPatch) (models.Channel, error) {
	args := m.Called(ctx, channelID, requesterID, patch)
	return channel(args), args.Error(1)
}

func (m *ChannelServiceMock) Delete(ctx context.Context, channelID, requesterID string) error {
	args := m.Called(ctx, channelID, requesterID)
	return args.Error(0)
}

func (m *ChannelServiceMock) AddMember(ctx context.Context, channelID, requesterID, targetEmail string) (models.Channel, error) {
	args := m.Called(ctx, channelID, requesterID, targetEmail)
	return channel(args), args.Error(1)
}

func (m *ChannelServiceMock) RemoveMember(ctx context.Context, channelID, requesterID, targetID string) (models.Channel, error) {
	args := m.Called(ctx, channelID, requesterID, targetID)
	return channel(args), args.Error(1)
}

type ReadServiceMock struct {
	mock.Mock
}

func (m *ReadServiceMock) MarkRead(ctx context.Context, userID, channelID string) (models.ChannelRead, error) {
	args := m.Called(ctx, userID, channelID)
	var read models.ChannelRead
	if val := args.Get(0); val != nil {
		read = val.(models.ChannelRead)
	}
	return read, args.Error(1)
}

func (m *ReadServiceMock) UnreadCount(ctx context.Context, userID, channelID string) (int, error) {
	args := m.Called(ctx, userID, channelID)
	return args.Int(0), args.Error(1)
}

func (m *ReadServiceMock) UnreadCountsForTeam(ctx context.Context, userID, teamID string) (map[string]int, error) {
	args := m.Called(ctx, userID, teamID)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

type MessageServiceMock struct {
	mock.Mock
}

func (m *MessageServiceMock) Create(ctx context.Context, in models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, in)
	return message(args), args.Error(1)
}

func (m *MessageServiceMock) List(ctx context.Context, channelID, requesterID string, limit int, beforeID string) ([]models.Message, error) {
	args := m.Called(ctx, channelID, requesterID, limit, beforeID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageServiceMock) Search(ctx context.Context, channelID, requesterID, query string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, requesterID, query, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageServiceMock) Get(ctx context.Context, messageID, requesterID string) (models.Message, error) {
	args := m.Called(ctx, messageID, requesterID)
	return message(args), args.Error(1)
}

func (m *MessageServiceMock) Update(ctx context.Context, messageID, requesterID, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, requesterID, content)
	return message(args), args.Error(1)
}

func (m *MessageServiceMock) Delete(ctx context.Context, messageID, requesterID string) error {
	args := m.Called(ctx, messageID, requesterID)
	return args.Error(0)
}

func (m *MessageServiceMock) AddReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error) {
	args := m.Called(ctx, messageID, requesterID, emoji)
	return message(args), args.Error(1)
}

func (m *MessageServiceMock) RemoveReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error) {
	args := m.Called(ctx, messageID, requesterID, emoji)
	return message(args), args.Error(1)
}

type NotificationServiceMock struct {
	mock.Mock
}

func (m *NotificationServiceMock) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationServiceMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationServiceMock) MarkRead(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationServiceMock) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationServiceMock) Delete(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

type TaskServiceMock struct {
	mock.Mock
}

func (m *TaskServiceMock) Create(ctx context.Context, requesterID string, in services.NewTask) (models.Task, error) {
	args := m.Called(ctx, requesterID, in)
	return task(args), args.Error(1)
}

func (m *TaskServiceMock) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Task, error) {
	args := m.Called(ctx, teamID, requesterID)
	var list []models.Task
	if val := args.Get(0); val != nil {
		list = val.([]models.Task)
	}
	return list, args.Error(1)
}

func (m *TaskServiceMock) Update(ctx context.Context, taskID, requesterID string, patch models.TaskPatch) (models.Task, error) {
	args := m.Called(ctx, taskID, requesterID, patch)
	return task(args), args.Error(1)
}

func (m *TaskServiceMock) UpdateStatus(ctx context.Context, taskID, requesterID string, status models.TaskStatus) (models.Task, error) {
	args := m.Called(ctx, taskID, requesterID, status)
	return task(args), args.Error(1)
}

func (m *TaskServiceMock) Delete(ctx context.Context, taskID, requesterID string) error {
	args := m.Called(ctx, taskID, requesterID)
	return args.Error(0)
}

type MeetingServiceMock struct {
	mock.Mock
}

func (m *MeetingServiceMock) Schedule(ctx context.Context, requesterID string, in services.NewMeeting) (models.Meeting, error) {
	args := m.Called(ctx, requesterID, in)
	return meeting(args), args.Error(1)
}

func (m *MeetingServiceMock) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Meeting, error) {
	args := m.Called(ctx, teamID, requesterID)
	var list []models.Meeting
	if val := args.Get(0); val != nil {
		list = val.([]models.Meeting)
	}
	return list, args.Error(1)
}

func (m *MeetingServiceMock) Start(ctx context.Context, meetingID, requesterID string) (models.Meeting, error) {
	args := m.Called(ctx, meetingID, requesterID)
	return meeting(args), args.Error(1)
}

func (m *MeetingServiceMock) End(ctx context.Context, meetingID, requesterID string) (models.Meeting, error) {
	args := m.Called(ctx, meetingID, requesterID)
	return meeting(args), args.Error(1)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	m.Called(ctx, level, text, requestID, userID)
}
