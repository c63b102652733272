package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/clock"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// ReadTracker keeps per-user channel watermarks and derives unread counts.
type ReadTracker struct {
	reads    repositories.ReadRepository
	messages repositories.MessageRepository
	channels repositories.ChannelRepository
	resolver *access.Resolver
	clock    clock.Clock
	log      *zap.Logger
}

// NewReadTracker constructs a ReadTracker.
func NewReadTracker(reads repositories.ReadRepository, messages repositories.MessageRepository,
	channels repositories.ChannelRepository, resolver *access.Resolver, clk clock.Clock, logger *zap.Logger) *ReadTracker {
	return &ReadTracker{reads: reads, messages: messages, channels: channels, resolver: resolver, clock: clk, log: logger}
}

// MarkRead moves the caller's watermark on channelID to now.
func (t *ReadTracker) MarkRead(ctx context.Context, userID, channelID string) (models.ChannelRead, error) {
	if _, err := t.resolver.Channel(ctx, channelID, userID, access.RequireChannelAccess); err != nil {
		return models.ChannelRead{}, err
	}
	return t.markRead(ctx, userID, channelID)
}

// markRead skips authorization for callers that already checked it.
func (t *ReadTracker) markRead(ctx context.Context, userID, channelID string) (models.ChannelRead, error) {
	return t.markReadAt(ctx, userID, channelID, t.clock.Now())
}

func (t *ReadTracker) markReadAt(ctx context.Context, userID, channelID string, at time.Time) (models.ChannelRead, error) {
	read, err := t.reads.UpsertRead(ctx, userID, channelID, at)
	return read, classify("mark channel read", err)
}

// UnreadCount counts messages from other senders newer than the caller's
// watermark.
func (t *ReadTracker) UnreadCount(ctx context.Context, userID, channelID string) (int, error) {
	if _, err := t.resolver.Channel(ctx, channelID, userID, access.RequireChannelAccess); err != nil {
		return 0, err
	}
	return t.unreadCount(ctx, userID, channelID)
}

func (t *ReadTracker) unreadCount(ctx context.Context, userID, channelID string) (int, error) {
	since, err := t.reads.LastReadAt(ctx, userID, channelID)
	if err != nil {
		return 0, classify("load read state", err)
	}
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	count, err := t.messages.CountUnread(ctx, channelID, userID, since)
	return count, classify("count unread", err)
}

// UnreadCountsForTeam returns channelID -> unread count for every channel
// of the team the caller can access.
func (t *ReadTracker) UnreadCountsForTeam(ctx context.Context, userID, teamID string) (map[string]int, error) {
	ctx, span := startSpan(ctx, "ReadTracker.UnreadCountsForTeam", attribute.String("team.id", teamID))
	defer span.End()

	scope, err := t.resolver.Team(ctx, teamID, userID, access.RequireTeamMember)
	if err != nil {
		return nil, err
	}
	channels, err := t.channels.ListChannelsForTeam(ctx, teamID)
	if err != nil {
		return nil, classify("list channels", err)
	}
	counts := make(map[string]int, len(channels))
	for _, c := range channels {
		if !access.CanAccessChannel(c, scope.Team, userID) {
			continue
		}
		n, err := t.unreadCount(ctx, userID, c.ID)
		if err != nil {
			return nil, err
		}
		counts[c.ID] = n
	}
	return counts, nil
}
