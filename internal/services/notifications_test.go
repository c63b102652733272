package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/apperr"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/services"
)

func TestParseMentions(t *testing.T) {
	cases := map[string][]string{
		"hello @alice and @bob":     {"alice", "bob"},
		"@alice @alice @alice":      {"alice"},
		"no mentions here":          {},
		"email a@b.com is not@ one": {"b"},
		"@under_score, @x1!":        {"under_score", "x1"},
	}
	for content, want := range cases {
		assert.Equal(t, want, services.ParseMentions(content), content)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", services.Excerpt("short", 50))
	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, services.Excerpt(exact, 50))
	assert.Equal(t, strings.Repeat("a", 50)+"...", services.Excerpt(strings.Repeat("a", 60), 50))
	assert.Equal(t, "héll...", services.Excerpt("héllo wörld", 4))
}

func TestMentionFanoutOnlyNotifiesTeamMembers(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	ch := f.channel(t, f.team(t, owner, alice), owner, "general", models.ChannelPublic)

	msg := f.post(t, ch.ID, owner, "hello @alice and @bob")

	got := f.inbox(t, alice.ID, models.NotifyMention)
	require.Len(t, got, 1)
	assert.Equal(t, "owner mentioned you", got[0].Title)
	assert.Equal(t, "hello @alice and @bob", got[0].Body)
	require.NotNil(t, got[0].RelatedID)
	assert.Equal(t, msg.ID, *got[0].RelatedID)
	assert.Empty(t, f.inbox(t, bob.ID, models.NotifyMention))
}

func TestMentionFanoutSkipsSenderAndUnknownNames(t *testing.T) {
	f := newFixture(t)
	owner, alice := f.user(t, "owner"), f.user(t, "alice")
	ch := f.channel(t, f.team(t, owner, alice), owner, "general", models.ChannelPublic)

	long := "@owner @nobody @alice " + strings.Repeat("x", 80)
	f.post(t, ch.ID, owner, long)

	assert.Empty(t, f.inbox(t, owner.ID, models.NotifyMention))
	got := f.inbox(t, alice.ID, models.NotifyMention)
	require.Len(t, got, 1)
	assert.Equal(t, services.Excerpt(long, 50), got[0].Body)
	assert.True(t, strings.HasSuffix(got[0].Body, "..."))
}

func TestNotifyPublishesAndMirrors(t *testing.T) {
	f := newFixture(t)
	mirror := new(mocks.EventMirrorMock)
	mirror.On("PublishEvent", mock.Anything, "notifications.created", models.EventNotification, mock.AnythingOfType("models.Notification")).
		Return(nil).Twice()
	notifier := services.NewNotificationService(f.store, f.store, f.bus, mirror, "notifications.created", f.clock, zap.NewNop())

	created := notifier.Notify(f.ctx, []string{"u1", "u2"}, models.Notification{Type: models.NotifyTask, Title: "t", Body: "b"})

	assert.Equal(t, 2, created)
	events := f.bus.named(models.EventNotification)
	require.Len(t, events, 2)
	assert.Equal(t, models.UserTopic("u1"), events[0].topic)
	assert.Equal(t, models.UserTopic("u2"), events[1].topic)
	mirror.AssertExpectations(t)
}

func TestNotifyMirrorFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	mirror := new(mocks.EventMirrorMock)
	mirror.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	notifier := services.NewNotificationService(f.store, f.store, f.bus, mirror, "notifications.created", f.clock, zap.NewNop())

	assert.Equal(t, 1, notifier.Notify(f.ctx, []string{"u1"}, models.Notification{Type: models.NotifyTask, Title: "t"}))
	n, err := notifier.UnreadCount(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	for _, title := range []string{"first", "second", "third"} {
		f.clock.Advance(time.Second)
		f.notifier.Notify(f.ctx, []string{"u1"}, models.Notification{Type: models.NotifyMessage, Title: title})
	}
	f.notifier.Notify(f.ctx, []string{"u2"}, models.Notification{Type: models.NotifyMessage, Title: "other"})

	list, err := f.notifier.List(f.ctx, "u1", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "first", list[2].Title)

	err = f.notifier.MarkRead(f.ctx, list[0].ID, "u2")
	assert.True(t, apperr.Is(err, apperr.NotificationNotFound))
	require.NoError(t, f.notifier.MarkRead(f.ctx, list[0].ID, "u1"))

	unread, err := f.notifier.List(f.ctx, "u1", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	updated, err := f.notifier.MarkAllRead(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	n, err := f.notifier.UnreadCount(f.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.True(t, apperr.Is(f.notifier.Delete(f.ctx, list[1].ID, "u2"), apperr.NotificationNotFound))
	require.NoError(t, f.notifier.Delete(f.ctx, list[1].ID, "u1"))
	list, err = f.notifier.List(f.ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
