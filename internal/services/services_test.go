package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/clock"
	"collab-service/internal/models"
	"collab-service/internal/repositories/inmem"
	"collab-service/internal/services"
)

type published struct {
	topic   string
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingBroadcaster) Publish(topic, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic: topic, event: event, payload: payload})
	return nil
}

func (r *recordingBroadcaster) named(event string) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx      context.Context
	store    *inmem.Store
	clock    *clock.FakeClock
	bus      *recordingBroadcaster
	resolver *access.Resolver

	notifier *services.NotificationService
	reads    *services.ReadTracker
	teams    *services.TeamService
	channels *services.ChannelService
	messages *services.MessageService
	tasks    *services.TaskService
	meetings *services.MeetingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmem.New()
	clk := clock.Fake(t0)
	bus := &recordingBroadcaster{}
	log := zap.NewNop()
	resolver := access.NewResolver(store, store)
	notifier := services.NewNotificationService(store, store, bus, nil, "notifications.created", clk, log)
	reads := services.NewReadTracker(store, store, store, resolver, clk, log)

	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		clock:    clk,
		bus:      bus,
		resolver: resolver,
		notifier: notifier,
		reads:    reads,
		teams:    services.NewTeamService(store, store, resolver, notifier, bus, clk, log),
		channels: services.NewChannelService(store, store, store, resolver, bus, clk, log),
		messages: services.NewMessageService(store, resolver, reads, notifier, bus, clk, log),
		tasks:    services.NewTaskService(store, resolver, notifier, bus, clk, log),
		meetings: services.NewMeetingService(store, resolver, notifier, bus, clk, log),
	}
	t.Cleanup(f.messages.Wait)
	return f
}

func (f *fixture) user(t *testing.T, username string) models.User {
	t.Helper()
	u, err := f.store.CreateUser(f.ctx, models.User{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
		CreatedAt:   f.clock.Now(),
	})
	require.NoError(t, err)
	return u
}

// team creates a team owned by owner and adds members through the service.
func (f *fixture) team(t *testing.T, owner models.User, members ...models.User) models.Team {
	t.Helper()
	team, err := f.teams.Create(f.ctx, owner.ID, services.NewTeam{Name: "team-" + owner.Username})
	require.NoError(t, err)
	for _, m := range members {
		team, err = f.teams.AddMember(f.ctx, team.ID, owner.ID, m.Email, models.RoleMember)
		require.NoError(t, err)
	}
	return team
}

func (f *fixture) channel(t *testing.T, team models.Team, creator models.User, name string, typ models.ChannelType) models.Channel {
	t.Helper()
	ch, err := f.channels.Create(f.ctx, creator.ID, services.NewChannel{Name: name, TeamID: team.ID, Type: typ})
	require.NoError(t, err)
	return ch
}

// post advances the clock one second, then posts content as sender.
func (f *fixture) post(t *testing.T, channelID string, sender models.User, content string) models.Message {
	t.Helper()
	f.clock.Advance(time.Second)
	msg, err := f.messages.Create(f.ctx, models.NewMessage{ChannelID: channelID, SenderID: sender.ID, Content: content})
	require.NoError(t, err)
	return msg
}

func (f *fixture) inbox(t *testing.T, userID string, typ models.NotificationType) []models.Notification {
	t.Helper()
	f.messages.Wait()
	all, err := f.notifier.List(f.ctx, userID, false, 200)
	require.NoError(t, err)
	var out []models.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}
