package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/identity"
	"collab-service/internal/models"
	"collab-service/internal/repositories/inmem"
)

const (
	ownerID    = "0190a1b2-0000-7000-8000-000000000001"
	memberID   = "0190a1b2-0000-7000-8000-000000000002"
	strangerID = "0190a1b2-0000-7000-8000-000000000003"
)

type wsFixture struct {
	server   *httptest.Server
	hub      *Hub
	verifier *identity.Verifier
	team     models.Team
	private  models.Channel
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := inmem.New()
	ctx := context.Background()
	team, err := store.CreateTeam(ctx, models.Team{Name: "core", OwnerID: ownerID, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.AddTeamMember(ctx, team.ID, models.TeamMember{UserID: memberID, Role: models.RoleMember}))
	private, err := store.CreateChannel(ctx, models.Channel{
		Name: "secret", Team: models.Unresolved[models.Team](team.ID), Type: models.ChannelPrivate,
		MemberIDs: []string{ownerID}, CreatedBy: ownerID, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	hub := NewHub(zap.NewNop(), 0)
	verifier := identity.NewVerifier("secret")
	handler := NewHandler(hub, verifier, access.NewResolver(store, store), nil, zap.NewNop())

	router := gin.New()
	router.GET("/ws/teams/:team_id", handler.Team)
	router.GET("/ws/channels/:channel_id", handler.Channel)
	router.GET("/ws/me", handler.Me)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &wsFixture{server: server, hub: hub, verifier: verifier, team: team, private: private}
}

func (f *wsFixture) token(t *testing.T, userID string) string {
	token, err := f.verifier.Issue(identity.Identity{UserID: userID}, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *wsFixture) dial(path, token string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestMeReceivesUserTopicFrames(t *testing.T) {
	f := newWSFixture(t)
	conn, _, err := f.dial("/ws/me", f.token(t, memberID))
	require.NoError(t, err)
	defer conn.Close()

	topic := models.UserTopic(memberID)
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.hub.Publish(topic, models.EventNotification, map[string]string{"id": "n1"}))

	var frame models.Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, models.EventNotification, frame.Event)
	assert.Equal(t, topic, frame.Topic)
}

func TestTeamSubscriptionRequiresMembership(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := f.dial("/ws/teams/"+f.team.ID, f.token(t, strangerID))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := f.dial("/ws/teams/"+f.team.ID, f.token(t, memberID))
	require.NoError(t, err)
	conn.Close()
}

func TestPrivateChannelSubscriptionRequiresChannelMembership(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := f.dial("/ws/channels/"+f.private.ID, f.token(t, memberID))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := f.dial("/ws/channels/"+f.private.ID, f.token(t, ownerID))
	require.NoError(t, err)
	conn.Close()
}

func TestSubscriptionRejectsBadToken(t *testing.T) {
	f := newWSFixture(t)
	_, resp, err := f.dial("/ws/me", "garbage")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownChannelIsNotFound(t *testing.T) {
	f := newWSFixture(t)
	_, resp, err := f.dial("/ws/channels/missing", f.token(t, ownerID))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDisconnectUnsubscribes(t *testing.T) {
	f := newWSFixture(t)
	conn, _, err := f.dial("/ws/me", f.token(t, ownerID))
	require.NoError(t, err)

	topic := models.UserTopic(ownerID)
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 0 }, time.Second, 5*time.Millisecond)
}
