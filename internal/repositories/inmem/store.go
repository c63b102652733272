// Package inmem holds map-backed repositories used by the memory store
// driver and by service tests.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

var (
	_ repositories.UserRepository         = (*Store)(nil)
	_ repositories.TeamRepository         = (*Store)(nil)
	_ repositories.ChannelRepository      = (*Store)(nil)
	_ repositories.MessageRepository      = (*Store)(nil)
	_ repositories.ReadRepository         = (*Store)(nil)
	_ repositories.NotificationRepository = (*Store)(nil)
	_ repositories.TaskRepository         = (*Store)(nil)
	_ repositories.MeetingRepository      = (*Store)(nil)
)

type reaction struct {
	models.Reaction
	at time.Time
}

type readKey struct {
	userID    string
	channelID string
}

// Store implements every repository interface over guarded maps. Values are
// copied on the way in and out so callers never share slices with the store.
type Store struct {
	mu sync.RWMutex

	users         map[string]models.User
	teams         map[string]models.Team
	teamOrder     []string
	channels      map[string]models.Channel
	channelOrder  []string
	messages      map[string]models.Message
	channelMsgs   map[string][]string
	reactions     map[string][]reaction
	reads         map[readKey]time.Time
	notifications map[string]models.Notification
	notifyOrder   []string
	tasks         map[string]models.Task
	taskOrder     []string
	meetings      map[string]models.Meeting
	meetingOrder  []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:         map[string]models.User{},
		teams:         map[string]models.Team{},
		channels:      map[string]models.Channel{},
		messages:      map[string]models.Message{},
		channelMsgs:   map[string][]string{},
		reactions:     map[string][]reaction{},
		reads:         map[readKey]time.Time{},
		notifications: map[string]models.Notification{},
		tasks:         map[string]models.Task{},
		meetings:      map[string]models.Meeting{},
	}
}

func newID(id string) string {
	if id == "" {
		return repositories.NewID()
	}
	return id
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func removeString(in []string, s string) ([]string, bool) {
	for i, v := range in {
		if v == s {
			return append(in[:i:i], in[i+1:]...), true
		}
	}
	return in, false
}

func containsString(in []string, s string) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}

// users

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = newID(user.ID)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return models.User{}, repositories.ErrDuplicateUser
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return models.User{}, repositories.ErrUserNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *Store) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrUserNotFound
}

func (s *Store) GetUsers(_ context.Context, userIDs []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := []models.User{}
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// teams

func copyTeam(t models.Team) models.Team {
	t.Members = append([]models.TeamMember{}, t.Members...)
	t.ChannelIDs = cloneStrings(t.ChannelIDs)
	return t
}

func (s *Store) CreateTeam(_ context.Context, team models.Team) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team.ID = newID(team.ID)
	team.UpdatedAt = team.CreatedAt
	members := []models.TeamMember{{UserID: team.OwnerID, Role: models.RoleOwner, JoinedAt: team.CreatedAt}}
	for _, m := range team.Members {
		if m.UserID != team.OwnerID {
			members = append(members, m)
		}
	}
	team.Members = members
	team.ChannelIDs = []string{}
	s.teams[team.ID] = copyTeam(team)
	s.teamOrder = append(s.teamOrder, team.ID)
	return team, nil
}

func (s *Store) GetTeam(_ context.Context, teamID string) (models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[teamID]
	if !ok {
		return models.Team{}, repositories.ErrTeamNotFound
	}
	return copyTeam(t), nil
}

func (s *Store) ListTeamsForUser(_ context.Context, userID string) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := []models.Team{}
	for _, id := range s.teamOrder {
		t, ok := s.teams[id]
		if !ok {
			continue
		}
		if _, member := t.Member(userID); member || t.OwnerID == userID {
			teams = append(teams, copyTeam(t))
		}
	}
	return teams, nil
}

func (s *Store) UpdateTeam(_ context.Context, teamID string, name, description *string, at time.Time) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return models.Team{}, repositories.ErrTeamNotFound
	}
	if name != nil {
		t.Name = *name
	}
	if description != nil {
		t.Description = *description
	}
	t.UpdatedAt = at
	s.teams[teamID] = t
	return copyTeam(t), nil
}

func (s *Store) DeleteTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(s.teams, teamID)
	s.teamOrder, _ = removeString(s.teamOrder, teamID)
	for id, c := range s.channels {
		if c.Team.ID() == teamID {
			delete(s.channels, id)
			s.channelOrder, _ = removeString(s.channelOrder, id)
		}
	}
	for id, t := range s.tasks {
		if t.TeamID == teamID {
			delete(s.tasks, id)
			s.taskOrder, _ = removeString(s.taskOrder, id)
		}
	}
	for id, m := range s.meetings {
		if m.TeamID == teamID {
			delete(s.meetings, id)
			s.meetingOrder, _ = removeString(s.meetingOrder, id)
		}
	}
	return nil
}

func (s *Store) AddTeamMember(_ context.Context, teamID string, member models.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if _, exists := t.Member(member.UserID); exists {
		return repositories.ErrAlreadyMember
	}
	t.Members = append(t.Members, member)
	s.teams[teamID] = t
	return nil
}

func (s *Store) RemoveTeamMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repositories.ErrMemberNotFound
	}
	for i, m := range t.Members {
		if m.UserID == userID {
			t.Members = append(t.Members[:i:i], t.Members[i+1:]...)
			s.teams[teamID] = t
			return nil
		}
	}
	return repositories.ErrMemberNotFound
}

func (s *Store) UpdateTeamMemberRole(_ context.Context, teamID, userID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repositories.ErrMemberNotFound
	}
	t = copyTeam(t)
	for i, m := range t.Members {
		if m.UserID == userID {
			t.Members[i].Role = role
			s.teams[teamID] = t
			return nil
		}
	}
	return repositories.ErrMemberNotFound
}

func (s *Store) AddTeamChannel(_ context.Context, teamID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if !containsString(t.ChannelIDs, channelID) {
		t.ChannelIDs = append(cloneStrings(t.ChannelIDs), channelID)
		s.teams[teamID] = t
	}
	return nil
}

func (s *Store) RemoveTeamChannel(_ context.Context, teamID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil
	}
	t.ChannelIDs, _ = removeString(cloneStrings(t.ChannelIDs), channelID)
	s.teams[teamID] = t
	return nil
}

// channels

func copyChannel(c models.Channel) models.Channel {
	c.MemberIDs = cloneStrings(c.MemberIDs)
	return c
}

func (s *Store) nameTaken(teamID, name, excludeID string) bool {
	for id, c := range s.channels {
		if id != excludeID && c.Team.ID() == teamID && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) CreateChannel(_ context.Context, channel models.Channel) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(channel.Team.ID(), channel.Name, "") {
		return models.Channel{}, repositories.ErrDuplicateChannelName
	}
	channel.ID = newID(channel.ID)
	channel.Team = models.Unresolved[models.Team](channel.Team.ID())
	channel.UpdatedAt = channel.CreatedAt
	members := []string{}
	for _, id := range channel.MemberIDs {
		if !containsString(members, id) {
			members = append(members, id)
		}
	}
	channel.MemberIDs = members
	s.channels[channel.ID] = copyChannel(channel)
	s.channelOrder = append(s.channelOrder, channel.ID)
	return channel, nil
}

func (s *Store) GetChannel(_ context.Context, channelID string) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[channelID]
	if !ok {
		return models.Channel{}, repositories.ErrChannelNotFound
	}
	return copyChannel(c), nil
}

func (s *Store) ListChannelsForTeam(_ context.Context, teamID string) ([]models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channels := []models.Channel{}
	for _, id := range s.channelOrder {
		if c, ok := s.channels[id]; ok && c.Team.ID() == teamID {
			channels = append(channels, copyChannel(c))
		}
	}
	return channels, nil
}

func (s *Store) ChannelNameTaken(_ context.Context, teamID, name, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nameTaken(teamID, name, excludeID), nil
}

func (s *Store) UpdateChannel(_ context.Context, channelID string, patch models.ChannelPatch, at time.Time) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[channelID]
	if !ok {
		return models.Channel{}, repositories.ErrChannelNotFound
	}
	if patch.Name != nil {
		if s.nameTaken(c.Team.ID(), *patch.Name, channelID) {
			return models.Channel{}, repositories.ErrDuplicateChannelName
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	c.UpdatedAt = at
	s.channels[channelID] = c
	return copyChannel(c), nil
}

func (s *Store) DeleteChannel(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return repositories.ErrChannelNotFound
	}
	delete(s.channels, channelID)
	s.channelOrder, _ = removeString(s.channelOrder, channelID)
	return nil
}

func (s *Store) AddChannelMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[channelID]
	if !ok {
		return repositories.ErrChannelNotFound
	}
	if containsString(c.MemberIDs, userID) {
		return repositories.ErrAlreadyMember
	}
	c.MemberIDs = append(cloneStrings(c.MemberIDs), userID)
	s.channels[channelID] = c
	return nil
}

func (s *Store) RemoveChannelMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[channelID]
	if !ok {
		return repositories.ErrChannelNotFound
	}
	members, removed := removeString(cloneStrings(c.MemberIDs), userID)
	if !removed {
		return repositories.ErrMemberNotFound
	}
	c.MemberIDs = members
	s.channels[channelID] = c
	return nil
}

// messages

func (s *Store) hydrateMessage(m models.Message) models.Message {
	if u, ok := s.users[m.SenderID()]; ok {
		m.Sender = m.Sender.Resolve(u)
	}
	if m.File != nil {
		file := *m.File
		m.File = &file
	}
	m.Reactions = []models.Reaction{}
	for _, r := range s.reactions[m.ID] {
		m.Reactions = append(m.Reactions, r.Reaction)
	}
	return m
}

func (s *Store) CreateMessage(_ context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = newID(msg.ID)
	msg.Sender = models.Unresolved[models.User](msg.SenderID())
	msg.UpdatedAt = msg.CreatedAt
	msg.Reactions = nil
	s.messages[msg.ID] = msg
	s.channelMsgs[msg.ChannelID] = append(s.channelMsgs[msg.ChannelID], msg.ID)
	return s.hydrateMessage(msg), nil
}

func (s *Store) GetMessage(_ context.Context, messageID string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return s.hydrateMessage(m), nil
}

// channelMessages returns the channel's messages newest first.
func (s *Store) channelMessages(channelID string) []models.Message {
	ids := s.channelMsgs[channelID]
	msgs := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	return msgs
}

func (s *Store) ListMessages(_ context.Context, channelID string, limit int, beforeID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.channelMessages(channelID) {
		if len(out) == limit {
			break
		}
		if beforeID != "" && m.ID >= beforeID {
			continue
		}
		out = append(out, s.hydrateMessage(m))
	}
	return out, nil
}

func (s *Store) UpdateMessageContent(_ context.Context, messageID, content string, at time.Time) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	m.Content = content
	m.UpdatedAt = at
	s.messages[messageID] = m
	return s.hydrateMessage(m), nil
}

func (s *Store) DeleteMessage(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return repositories.ErrMessageNotFound
	}
	delete(s.messages, messageID)
	delete(s.reactions, messageID)
	s.channelMsgs[m.ChannelID], _ = removeString(s.channelMsgs[m.ChannelID], messageID)
	return nil
}

func (s *Store) SetReaction(_ context.Context, messageID, userID, emoji string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return repositories.ErrMessageNotFound
	}
	kept := []reaction{}
	for _, r := range s.reactions[messageID] {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	s.reactions[messageID] = append(kept, reaction{Reaction: models.Reaction{UserID: userID, Emoji: emoji}, at: at})
	return nil
}

func (s *Store) RemoveReactions(_ context.Context, messageID, userID, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := []reaction{}
	for _, r := range s.reactions[messageID] {
		if r.UserID == userID && (emoji == "" || r.Emoji == emoji) {
			continue
		}
		kept = append(kept, r)
	}
	s.reactions[messageID] = kept
	return nil
}

func (s *Store) CountUnread(_ context.Context, channelID, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, id := range s.channelMsgs[channelID] {
		m := s.messages[id]
		if m.CreatedAt.After(since) && m.SenderID() != userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) SearchMessages(_ context.Context, channelID, query string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	out := []models.Message{}
	for _, m := range s.channelMessages(channelID) {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, s.hydrateMessage(m))
		}
	}
	return out, nil
}

// read state

func (s *Store) UpsertRead(_ context.Context, userID, channelID string, at time.Time) (models.ChannelRead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := readKey{userID: userID, channelID: channelID}
	if prev, ok := s.reads[key]; !ok || at.After(prev) {
		s.reads[key] = at
	}
	return models.ChannelRead{UserID: userID, ChannelID: channelID, LastReadAt: s.reads[key]}, nil
}

func (s *Store) LastReadAt(_ context.Context, userID, channelID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[readKey{userID: userID, channelID: channelID}], nil
}

// notifications

func (s *Store) CreateNotification(_ context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = newID(n.ID)
	n.Read = false
	s.notifications[n.ID] = n
	s.notifyOrder = append(s.notifyOrder, n.ID)
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Notification{}
	for i := len(s.notifyOrder) - 1; i >= 0 && len(out) < limit; i-- {
		n, ok := s.notifications[s.notifyOrder[i]]
		if !ok || n.RecipientID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, notificationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.RecipientID != userID {
		return repositories.ErrNotificationNotFound
	}
	n.Read = true
	s.notifications[notificationID] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, n := range s.notifications {
		if n.RecipientID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(_ context.Context, notificationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.RecipientID != userID {
		return repositories.ErrNotificationNotFound
	}
	delete(s.notifications, notificationID)
	s.notifyOrder, _ = removeString(s.notifyOrder, notificationID)
	return nil
}

// tasks

func copyTask(t models.Task) models.Task {
	t.AssigneeIDs = cloneStrings(t.AssigneeIDs)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

func (s *Store) CreateTask(_ context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = newID(task.ID)
	task.UpdatedAt = task.CreatedAt
	if task.AssigneeIDs == nil {
		task.AssigneeIDs = []string{}
	}
	s.tasks[task.ID] = copyTask(task)
	s.taskOrder = append(s.taskOrder, task.ID)
	return copyTask(task), nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return models.Task{}, repositories.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (s *Store) ListTasksForTeam(_ context.Context, teamID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := []models.Task{}
	for _, id := range s.taskOrder {
		if t, ok := s.tasks[id]; ok && t.TeamID == teamID {
			tasks = append(tasks, copyTask(t))
		}
	}
	return tasks, nil
}

func (s *Store) SaveTask(_ context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tasks[task.ID]
	if !ok {
		return models.Task{}, repositories.ErrTaskNotFound
	}
	task.TeamID = prev.TeamID
	task.CreatorID = prev.CreatorID
	task.CreatedAt = prev.CreatedAt
	if task.AssigneeIDs == nil {
		task.AssigneeIDs = []string{}
	}
	s.tasks[task.ID] = copyTask(task)
	return copyTask(task), nil
}

func (s *Store) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return repositories.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	s.taskOrder, _ = removeString(s.taskOrder, taskID)
	return nil
}

// meetings

func copyMeeting(m models.Meeting) models.Meeting {
	m.ParticipantIDs = cloneStrings(m.ParticipantIDs)
	return m
}

func (s *Store) CreateMeeting(_ context.Context, meeting models.Meeting) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meeting.ID = newID(meeting.ID)
	meeting.ReminderSent = false
	if meeting.ParticipantIDs == nil {
		meeting.ParticipantIDs = []string{}
	}
	s.meetings[meeting.ID] = copyMeeting(meeting)
	s.meetingOrder = append(s.meetingOrder, meeting.ID)
	return copyMeeting(meeting), nil
}

func (s *Store) GetMeeting(_ context.Context, meetingID string) (models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return models.Meeting{}, repositories.ErrMeetingNotFound
	}
	return copyMeeting(m), nil
}

func (s *Store) ListMeetingsForTeam(_ context.Context, teamID string) ([]models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meetings := []models.Meeting{}
	for _, id := range s.meetingOrder {
		if m, ok := s.meetings[id]; ok && m.TeamID == teamID {
			meetings = append(meetings, copyMeeting(m))
		}
	}
	sort.SliceStable(meetings, func(i, j int) bool { return meetings[i].ScheduledAt.Before(meetings[j].ScheduledAt) })
	return meetings, nil
}

func (s *Store) TransitionMeeting(_ context.Context, meetingID string, from, to models.MeetingStatus, at time.Time) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return models.Meeting{}, repositories.ErrMeetingNotFound
	}
	if m.Status != from {
		return models.Meeting{}, repositories.ErrStateConflict
	}
	m.Status = to
	stamp := at
	if to == models.MeetingEnded {
		m.EndedAt = &stamp
	} else {
		m.StartedAt = &stamp
	}
	s.meetings[meetingID] = m
	return copyMeeting(m), nil
}

func (s *Store) DueForReminder(_ context.Context, from, to time.Time) ([]models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := []models.Meeting{}
	for _, id := range s.meetingOrder {
		m, ok := s.meetings[id]
		if !ok || m.Status != models.MeetingScheduled || m.ReminderSent {
			continue
		}
		if m.ScheduledAt.After(from) && !m.ScheduledAt.After(to) {
			due = append(due, copyMeeting(m))
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

func (s *Store) MarkReminderSent(_ context.Context, meetingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok || m.ReminderSent {
		return false, nil
	}
	m.ReminderSent = true
	s.meetings[meetingID] = m
	return true, nil
}
