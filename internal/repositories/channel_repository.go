package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, channel models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, channelID string) (models.Channel, error)
	ListChannelsForTeam(ctx context.Context, teamID string) ([]models.Channel, error)
	ChannelNameTaken(ctx context.Context, teamID, name, excludeID string) (bool, error)
	UpdateChannel(ctx context.Context, channelID string, patch models.ChannelPatch, at time.Time) (models.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	AddChannelMember(ctx context.Context, channelID, userID string) error
	RemoveChannelMember(ctx context.Context, channelID, userID string) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, name, description, team_id, type, created_by, created_at, updated_at`

// CreateChannel inserts a channel and its initial member set.
func (r *ChannelRepo) CreateChannel(ctx context.Context, channel models.Channel) (created models.Channel, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if channel.ID == "" {
		channel.ID = NewID()
	}
	err = tx.QueryRowxContext(ctx, `INSERT INTO channels (id, name, description, team_id, type, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING `+channelColumns,
		channel.ID, channel.Name, channel.Description, channel.Team.ID(), channel.Type, channel.CreatedBy, channel.CreatedAt).StructScan(&created)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateChannelName
		}
		return models.Channel{}, err
	}
	created.MemberIDs = []string{}
	for _, userID := range channel.MemberIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, added_at) VALUES ($1, $2, $3)
            ON CONFLICT DO NOTHING`, created.ID, userID, channel.CreatedAt); err != nil {
			return models.Channel{}, err
		}
		created.MemberIDs = append(created.MemberIDs, userID)
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return created, nil
}

// GetChannel fetches a channel with its member ids.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID string) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID); err != nil {
		return models.Channel{}, notFound(err, ErrChannelNotFound)
	}
	channels := []models.Channel{channel}
	if err := r.hydrate(ctx, channels); err != nil {
		return models.Channel{}, err
	}
	return channels[0], nil
}

// ListChannelsForTeam returns every channel of the team, oldest first.
func (r *ChannelRepo) ListChannelsForTeam(ctx context.Context, teamID string) ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels
        WHERE team_id=$1 ORDER BY created_at ASC, id ASC`, teamID); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ChannelNameTaken reports whether another channel in the team uses name.
// Names compare case-sensitively.
func (r *ChannelRepo) ChannelNameTaken(ctx context.Context, teamID, name, excludeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM channels WHERE team_id=$1 AND name=$2)`
	args := []any{teamID, name}
	if excludeID != "" {
		query = `SELECT EXISTS(SELECT 1 FROM channels WHERE team_id=$1 AND name=$2 AND id<>$3)`
		args = append(args, excludeID)
	}
	err := r.db.GetContext(ctx, &exists, query, args...)
	return exists, err
}

// UpdateChannel applies a partial update.
func (r *ChannelRepo) UpdateChannel(ctx context.Context, channelID string, patch models.ChannelPatch, at time.Time) (models.Channel, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE channels SET
        name = COALESCE($2, name),
        description = COALESCE($3, description),
        type = COALESCE($4, type),
        updated_at = $5
        WHERE id=$1`, channelID, patch.Name, patch.Description, patch.Type, at)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Channel{}, ErrDuplicateChannelName
		}
		return models.Channel{}, notFound(err, ErrChannelNotFound)
	}
	if err := rowsAffected(res, ErrChannelNotFound); err != nil {
		return models.Channel{}, err
	}
	return r.GetChannel(ctx, channelID)
}

// DeleteChannel removes the channel record. Messages are left in place.
func (r *ChannelRepo) DeleteChannel(ctx context.Context, channelID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID)
	if err != nil {
		return notFound(err, ErrChannelNotFound)
	}
	return rowsAffected(res, ErrChannelNotFound)
}

// AddChannelMember appends userID to the channel's member set.
func (r *ChannelRepo) AddChannelMember(ctx context.Context, channelID, userID string) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, added_at) VALUES ($1, $2, NOW())
        ON CONFLICT (channel_id, user_id) DO NOTHING`, channelID, userID)
	if err != nil {
		return err
	}
	return rowsAffected(res, ErrAlreadyMember)
}

// RemoveChannelMember removes userID from the channel's member set.
func (r *ChannelRepo) RemoveChannelMember(ctx context.Context, channelID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channel_members WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	if err != nil {
		return notFound(err, ErrMemberNotFound)
	}
	return rowsAffected(res, ErrMemberNotFound)
}

func (r *ChannelRepo) hydrate(ctx context.Context, channels []models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	ids := make([]string, len(channels))
	index := make(map[string]int, len(channels))
	for i, c := range channels {
		ids[i] = c.ID
		index[c.ID] = i
		channels[i].MemberIDs = []string{}
	}
	var rows []struct {
		ChannelID string `db:"channel_id"`
		UserID    string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT channel_id, user_id FROM channel_members
        WHERE channel_id = ANY($1::uuid[]) ORDER BY added_at ASC, user_id ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.ChannelID]
		channels[i].MemberIDs = append(channels[i].MemberIDs, row.UserID)
	}
	return nil
}
