package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// MessageRepository defines interactions for channel messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	// ListMessages returns up to limit messages newest first, restricted to
	// ids strictly below beforeID when it is non-empty.
	ListMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]models.Message, error)
	UpdateMessageContent(ctx context.Context, messageID, content string, at time.Time) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	// SetReaction replaces any reaction userID holds on the message with emoji.
	SetReaction(ctx context.Context, messageID, userID, emoji string, at time.Time) error
	// RemoveReactions removes userID's reaction matching emoji, or all of
	// userID's reactions when emoji is empty.
	RemoveReactions(ctx context.Context, messageID, userID, emoji string) error
	CountUnread(ctx context.Context, channelID, userID string, since time.Time) (int, error)
	SearchMessages(ctx context.Context, channelID, query string, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageSelect = `SELECT m.id, m.channel_id, m.sender_id, m.content, m.type, m.file_url, m.file_name, m.file_size,
        m.reply_to, m.created_at, m.updated_at,
        u.username AS sender_username, u.email AS sender_email, u.display_name AS sender_display_name
        FROM messages m LEFT JOIN users u ON u.id = m.sender_id`

type messageRow struct {
	models.Message
	FileURL           sql.NullString `db:"file_url"`
	FileName          sql.NullString `db:"file_name"`
	FileSize          sql.NullInt64  `db:"file_size"`
	SenderUsername    sql.NullString `db:"sender_username"`
	SenderEmail       sql.NullString `db:"sender_email"`
	SenderDisplayName sql.NullString `db:"sender_display_name"`
}

func (row messageRow) toModel() models.Message {
	msg := row.Message
	if row.FileURL.Valid {
		msg.File = &models.FileMeta{URL: row.FileURL.String, Name: row.FileName.String, Size: row.FileSize.Int64}
	}
	if row.SenderUsername.Valid {
		msg.Sender = msg.Sender.Resolve(models.User{
			ID:          msg.Sender.ID(),
			Username:    row.SenderUsername.String,
			Email:       row.SenderEmail.String,
			DisplayName: row.SenderDisplayName.String,
		})
	}
	msg.Reactions = []models.Reaction{}
	return msg
}

// CreateMessage persists a message with an empty reaction set.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = NewID()
	}
	var fileURL, fileName sql.NullString
	var fileSize sql.NullInt64
	if msg.File != nil {
		fileURL = sql.NullString{String: msg.File.URL, Valid: true}
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		fileSize = sql.NullInt64{Int64: msg.File.Size, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, channel_id, sender_id, content, type, file_url, file_name, file_size, reply_to, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		msg.ID, msg.ChannelID, msg.Sender.ID(), msg.Content, msg.Type, fileURL, fileName, fileSize, msg.ReplyTo, msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, msg.ID)
}

// GetMessage retrieves a single message with its sender and reactions.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var row messageRow
	if err := r.db.GetContext(ctx, &row, messageSelect+` WHERE m.id=$1`, messageID); err != nil {
		return models.Message{}, notFound(err, ErrMessageNotFound)
	}
	msgs := []models.Message{row.toModel()}
	if err := r.loadReactions(ctx, msgs); err != nil {
		return models.Message{}, err
	}
	return msgs[0], nil
}

// ListMessages pages backwards through a channel by id.
func (r *MessageRepo) ListMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]models.Message, error) {
	query := messageSelect + ` WHERE m.channel_id=$1 ORDER BY m.id DESC LIMIT $2`
	args := []any{channelID, limit}
	if beforeID != "" {
		query = messageSelect + ` WHERE m.channel_id=$1 AND m.id < $3 ORDER BY m.id DESC LIMIT $2`
		args = append(args, beforeID)
	}
	return r.selectMessages(ctx, query, args...)
}

// UpdateMessageContent replaces a message's content.
func (r *MessageRepo) UpdateMessageContent(ctx context.Context, messageID, content string, at time.Time) (models.Message, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content=$2, updated_at=$3 WHERE id=$1`, messageID, content, at)
	if err != nil {
		return models.Message{}, notFound(err, ErrMessageNotFound)
	}
	if err := rowsAffected(res, ErrMessageNotFound); err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, messageID)
}

// DeleteMessage removes a message and its reactions.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return notFound(err, ErrMessageNotFound)
	}
	return rowsAffected(res, ErrMessageNotFound)
}

// SetReaction upserts on (message_id, user_id) so a user holds one reaction
// per message. The replaced reaction moves to the end of the order.
func (r *MessageRepo) SetReaction(ctx context.Context, messageID, userID, emoji string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reactions (message_id, user_id, emoji, reacted_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, reacted_at = EXCLUDED.reacted_at`,
		messageID, userID, emoji, at)
	if isForeignKeyViolation(err) {
		return ErrMessageNotFound
	}
	return notFound(err, ErrMessageNotFound)
}

// RemoveReactions deletes userID's reactions on the message.
func (r *MessageRepo) RemoveReactions(ctx context.Context, messageID, userID, emoji string) error {
	if emoji == "" {
		_, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2`, messageID, userID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	return err
}

// CountUnread counts messages by other senders created after since.
func (r *MessageRepo) CountUnread(ctx context.Context, channelID, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages
        WHERE channel_id=$1 AND created_at > $2 AND sender_id <> $3`, channelID, since, userID)
	return count, err
}

// SearchMessages finds messages whose content contains query, newest first.
func (r *MessageRepo) SearchMessages(ctx context.Context, channelID, query string, limit int) ([]models.Message, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.selectMessages(ctx, messageSelect+` WHERE m.channel_id=$1 AND m.content ILIKE $2 ESCAPE '\'
        ORDER BY m.id DESC LIMIT $3`, channelID, pattern, limit)
}

func (r *MessageRepo) selectMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	if err := r.loadReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessageRepo) loadReactions(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, len(msgs))
	index := make(map[string]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		index[m.ID] = i
	}
	var rows []struct {
		MessageID string `db:"message_id"`
		models.Reaction
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT message_id, user_id, emoji FROM message_reactions
        WHERE message_id = ANY($1::uuid[]) ORDER BY reacted_at ASC, user_id ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.MessageID]
		msgs[i].Reactions = append(msgs[i].Reactions, row.Reaction)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
