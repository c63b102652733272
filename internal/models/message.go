package models

import "time"

// MessageType classifies message content.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
	MessageLink  MessageType = "link"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageFile, MessageImage, MessageLink:
		return true
	}
	return false
}

// FileMeta describes an attachment stored by the file service.
type FileMeta struct {
	URL  string `db:"file_url" json:"url"`
	Name string `db:"file_name" json:"name"`
	Size int64  `db:"file_size" json:"size"`
}

// Reaction is a single user's reaction on a message.
type Reaction struct {
	UserID string `db:"user_id" json:"user_id"`
	Emoji  string `db:"emoji" json:"emoji"`
}

// Message is a post in a channel.
type Message struct {
	ID        string      `db:"id" json:"id"`
	ChannelID string      `db:"channel_id" json:"channel_id"`
	Sender    Ref[User]   `db:"sender_id" json:"sender_id"`
	Content   string      `db:"content" json:"content"`
	Type      MessageType `db:"type" json:"type"`
	File      *FileMeta   `db:"-" json:"file,omitempty"`
	ReplyTo   *string     `db:"reply_to" json:"reply_to,omitempty"`
	Reactions []Reaction  `db:"-" json:"reactions"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

func (m Message) RefID() string { return m.ID }

// SenderID is shorthand for m.Sender.ID().
func (m Message) SenderID() string { return m.Sender.ID() }

// NewMessage is the input to message creation.
type NewMessage struct {
	ChannelID string      `validate:"required"`
	SenderID  string      `validate:"required"`
	Content   string      `validate:"max=10000"`
	Type      MessageType `validate:"omitempty,oneof=text file image link"`
	File      *FileMeta
	// MediaType of the attachment, used to derive Type when it is empty.
	MediaType string
	ReplyTo   *string
}
