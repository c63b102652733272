package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/models"
)

const (
	channelID = "0190a1b2-0000-7000-8000-0000000000c1"
	messageID = "0190a1b2-0000-7000-8000-0000000000a1"
	userID    = "0190a1b2-0000-7000-8000-000000000001"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func TestUpsertReadOnlyMovesForward(t *testing.T) {
	db, mock := newMockDB(t)
	stored := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stale := stored.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id, channel_id) DO UPDATE SET last_read_at = GREATEST(channel_reads.last_read_at, EXCLUDED.last_read_at)`)).
		WithArgs(userID, channelID, stale).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "channel_id", "last_read_at"}).AddRow(userID, channelID, stored))

	read, err := NewReadRepo(db).UpsertRead(context.Background(), userID, channelID, stale)
	require.NoError(t, err)
	assert.Equal(t, stored, read.LastReadAt)
}

func TestLastReadAtWithoutRowIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT last_read_at FROM channel_reads WHERE user_id=$1 AND channel_id=$2`)).
		WithArgs(userID, channelID).
		WillReturnRows(sqlmock.NewRows([]string{"last_read_at"}))

	at, err := NewReadRepo(db).LastReadAt(context.Background(), userID, channelID)
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestSetReactionUpsertsPerUser(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, reacted_at = EXCLUDED.reacted_at`)).
		WithArgs(messageID, userID, "👍", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewMessageRepo(db).SetReaction(context.Background(), messageID, userID, "👍", at))
}

func TestSetReactionOnMissingMessage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO message_reactions`).
		WillReturnError(&pq.Error{Code: foreignKeyViolation})
	mock.ExpectExec(`INSERT INTO message_reactions`).
		WillReturnError(&pq.Error{Code: invalidTextRepresentation})

	assert.ErrorIs(t, repo.SetReaction(context.Background(), messageID, userID, "👍", at), ErrMessageNotFound)
	assert.ErrorIs(t, repo.SetReaction(context.Background(), "abc", userID, "👍", at), ErrMessageNotFound)
}

func TestListMessagesCursorShape(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE m.channel_id=$1 AND m.id < $3 ORDER BY m.id DESC LIMIT $2`)).
		WithArgs(channelID, 20, messageID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	page, err := NewMessageRepo(db).ListMessages(context.Background(), channelID, 20, messageID)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestGetChannelMapsMissingAndMalformedIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM channels WHERE id=$1`)).
		WithArgs(channelID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM channels WHERE id=$1`)).
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: invalidTextRepresentation})

	_, err := repo.GetChannel(context.Background(), channelID)
	assert.ErrorIs(t, err, ErrChannelNotFound)
	_, err = repo.GetChannel(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestUpdateChannelErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepo(db)
	name := "general"
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE channels SET`).WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectExec(`UPDATE channels SET`).WillReturnError(&pq.Error{Code: invalidTextRepresentation})
	mock.ExpectExec(`UPDATE channels SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateChannel(context.Background(), channelID, models.ChannelPatch{Name: &name}, at)
	assert.ErrorIs(t, err, ErrDuplicateChannelName)
	_, err = repo.UpdateChannel(context.Background(), "abc", models.ChannelPatch{Name: &name}, at)
	assert.ErrorIs(t, err, ErrChannelNotFound)
	_, err = repo.UpdateChannel(context.Background(), channelID, models.ChannelPatch{Name: &name}, at)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestDeleteWithoutRowsIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM channels WHERE id=$1`)).
		WithArgs(channelID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages WHERE id=$1`)).
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: invalidTextRepresentation})

	assert.ErrorIs(t, NewChannelRepo(db).DeleteChannel(context.Background(), channelID), ErrChannelNotFound)
	assert.ErrorIs(t, NewMessageRepo(db).DeleteMessage(context.Background(), "abc"), ErrMessageNotFound)
}

func TestGetUserWithMalformedID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: invalidTextRepresentation})

	_, err := NewUserRepo(db).GetUser(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
