package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// ReadRepository stores per-user channel read watermarks.
type ReadRepository interface {
	// UpsertRead atomically creates or advances the watermark for the pair.
	UpsertRead(ctx context.Context, userID, channelID string, at time.Time) (models.ChannelRead, error)
	// LastReadAt returns the watermark, or the zero time when none exists.
	LastReadAt(ctx context.Context, userID, channelID string) (time.Time, error)
}

// ReadRepo is a sqlx implementation of ReadRepository.
type ReadRepo struct {
	db *sqlx.DB
}

// NewReadRepo constructs a ReadRepo.
func NewReadRepo(db *sqlx.DB) *ReadRepo {
	return &ReadRepo{db: db}
}

// UpsertRead is a single statement so concurrent calls for the same pair
// never lose an update; the watermark only moves forward.
func (r *ReadRepo) UpsertRead(ctx context.Context, userID, channelID string, at time.Time) (models.ChannelRead, error) {
	var read models.ChannelRead
	err := r.db.QueryRowxContext(ctx, `INSERT INTO channel_reads (user_id, channel_id, last_read_at) VALUES ($1, $2, $3)
        ON CONFLICT (user_id, channel_id) DO UPDATE SET last_read_at = GREATEST(channel_reads.last_read_at, EXCLUDED.last_read_at)
        RETURNING user_id, channel_id, last_read_at`, userID, channelID, at).StructScan(&read)
	return read, err
}

// LastReadAt fetches the watermark for the pair.
func (r *ReadRepo) LastReadAt(ctx context.Context, userID, channelID string) (time.Time, error) {
	var at []time.Time
	if err := r.db.SelectContext(ctx, &at, `SELECT last_read_at FROM channel_reads WHERE user_id=$1 AND channel_id=$2`, userID, channelID); err != nil {
		return time.Time{}, err
	}
	if len(at) == 0 {
		return time.Time{}, nil
	}
	return at[0], nil
}
