package models

// Event names published on realtime topics.
const (
	EventMessageNew      = "message:new"
	EventMessageUpdated  = "message:updated"
	EventMessageDeleted  = "message:deleted"
	EventMessageReaction = "message:reaction"
	EventMemberAdded     = "team:member_added"
	EventMemberRemoved   = "team:member_removed"
	EventChannelCreated  = "channel:created"
	EventChannelDeleted  = "channel:deleted"
	EventNotification    = "notification:new"
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskDeleted     = "task:deleted"
	EventMeetingSchedule = "meeting:scheduled"
	EventMeetingStarted  = "meeting:started"
	EventMeetingEnded    = "meeting:ended"
)

// Frame is what subscribers receive over the websocket.
type Frame struct {
	Event   string `json:"event"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// MessageDeleted is the payload of EventMessageDeleted.
type MessageDeleted struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// TeamMemberEvent is the payload of team membership events.
type TeamMemberEvent struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role,omitempty"`
}

// ChannelDeleted is the payload of EventChannelDeleted.
type ChannelDeleted struct {
	ChannelID string `json:"channel_id"`
	TeamID    string `json:"team_id"`
}

// TaskDeleted is the payload of EventTaskDeleted.
type TaskDeleted struct {
	TaskID string `json:"task_id"`
	TeamID string `json:"team_id"`
}

// TeamTopic returns the realtime topic for a team.
func TeamTopic(teamID string) string { return "team:" + teamID }

// ChannelTopic returns the realtime topic for a channel.
func ChannelTopic(channelID string) string { return "channel:" + channelID }

// UserTopic returns the realtime topic for a user's private feed.
func UserTopic(userID string) string { return "user:" + userID }
