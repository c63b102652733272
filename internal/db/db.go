package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect opens the Postgres pool and applies the schema.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied", zap.Int("statements", len(migrations)))
	return db, nil
}

// Migrate applies every schema statement. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY,
        username TEXT NOT NULL UNIQUE,
        email TEXT NOT NULL UNIQUE,
        display_name TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS teams (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        owner_id UUID NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS team_members (
        team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
        user_id UUID NOT NULL,
        role TEXT NOT NULL,
        joined_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY(team_id, user_id)
    );`,
	`CREATE INDEX IF NOT EXISTS team_members_user_idx ON team_members(user_id);`,
	`CREATE TABLE IF NOT EXISTS channels (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
        type TEXT NOT NULL,
        created_by UUID NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL,
        UNIQUE(team_id, name)
    );`,
	`CREATE TABLE IF NOT EXISTS team_channels (
        team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
        channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
        added_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY(team_id, channel_id)
    );`,
	`CREATE TABLE IF NOT EXISTS channel_members (
        channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
        user_id UUID NOT NULL,
        added_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY(channel_id, user_id)
    );`,
	// Messages outlive their channel, so channel_id carries no foreign key.
	`CREATE TABLE IF NOT EXISTS messages (
        id UUID PRIMARY KEY,
        channel_id UUID NOT NULL,
        sender_id UUID NOT NULL,
        content TEXT NOT NULL DEFAULT '',
        type TEXT NOT NULL,
        file_url TEXT,
        file_name TEXT,
        file_size BIGINT,
        reply_to UUID,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS messages_channel_id_idx ON messages(channel_id, id DESC);`,
	`CREATE INDEX IF NOT EXISTS messages_channel_created_idx ON messages(channel_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
        message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
        user_id UUID NOT NULL,
        emoji TEXT NOT NULL,
        reacted_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY(message_id, user_id)
    );`,
	`CREATE TABLE IF NOT EXISTS channel_reads (
        user_id UUID NOT NULL,
        channel_id UUID NOT NULL,
        last_read_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY(user_id, channel_id)
    );`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id UUID PRIMARY KEY,
        recipient_id UUID NOT NULL,
        type TEXT NOT NULL,
        title TEXT NOT NULL,
        body TEXT NOT NULL DEFAULT '',
        related_id TEXT,
        read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications(recipient_id, id DESC);`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL,
        creator_id UUID NOT NULL,
        due_date TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS task_assignees (
        task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
        user_id UUID NOT NULL,
        position INT NOT NULL,
        PRIMARY KEY(task_id, user_id)
    );`,
	`CREATE TABLE IF NOT EXISTS meetings (
        id UUID PRIMARY KEY,
        team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        host_id UUID NOT NULL,
        scheduled_at TIMESTAMPTZ NOT NULL,
        status TEXT NOT NULL,
        started_at TIMESTAMPTZ,
        ended_at TIMESTAMPTZ,
        reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS meetings_reminder_idx ON meetings(status, scheduled_at) WHERE reminder_sent = FALSE;`,
	`CREATE TABLE IF NOT EXISTS meeting_participants (
        meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
        user_id UUID NOT NULL,
        position INT NOT NULL,
        PRIMARY KEY(meeting_id, user_id)
    );`,
}
