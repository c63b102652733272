package models

import "time"

// ChannelType controls channel visibility.
type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	return t == ChannelPublic || t == ChannelPrivate
}

// Channel is a conversation stream inside a team.
type Channel struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	Team        Ref[Team]   `db:"team_id" json:"team_id"`
	Type        ChannelType `db:"type" json:"type"`
	MemberIDs   []string    `db:"-" json:"member_ids"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (c Channel) RefID() string { return c.ID }

// HasMember reports whether userID is in the channel's member set.
func (c Channel) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelPatch carries a partial channel update. Nil fields are left unchanged.
type ChannelPatch struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Type        *ChannelType `json:"type"`
}

// ChannelRead is a user's read watermark for one channel.
type ChannelRead struct {
	UserID     string    `db:"user_id" json:"user_id"`
	ChannelID  string    `db:"channel_id" json:"channel_id"`
	LastReadAt time.Time `db:"last_read_at" json:"last_read_at"`
}
