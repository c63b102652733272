package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/apperr"
	"collab-service/internal/identity"
	"collab-service/internal/models"
	"collab-service/internal/observability"
)

// TokenVerifier authenticates the bearer token presented at upgrade time.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// EventMirror forwards connection lifecycle events to the message bus.
type EventMirror interface {
	PublishEvent(ctx context.Context, routingKey, eventName string, payload any) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler authorizes websocket subscriptions and attaches them to the hub.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
	resolver *access.Resolver
	mirror   EventMirror
	log      *zap.Logger
}

// NewHandler constructs a Handler. mirror may be nil.
func NewHandler(hub *Hub, verifier TokenVerifier, resolver *access.Resolver, mirror EventMirror, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, verifier: verifier, resolver: resolver, mirror: mirror, log: logger}
}

// Team subscribes a team member to team:<team_id>.
func (h *Handler) Team(c *gin.Context) {
	teamID := c.Param("team_id")
	h.handle(c, "team", func(ctx context.Context, userID string) (string, error) {
		if _, err := h.resolver.Team(ctx, teamID, userID, access.RequireTeamMember); err != nil {
			return "", err
		}
		return models.TeamTopic(teamID), nil
	})
}

// Channel subscribes a caller with channel access to channel:<channel_id>.
func (h *Handler) Channel(c *gin.Context) {
	channelID := c.Param("channel_id")
	h.handle(c, "channel", func(ctx context.Context, userID string) (string, error) {
		if _, err := h.resolver.Channel(ctx, channelID, userID, access.RequireChannelAccess); err != nil {
			return "", err
		}
		return models.ChannelTopic(channelID), nil
	})
}

// Me subscribes the caller to their private user:<id> feed.
func (h *Handler) Me(c *gin.Context) {
	h.handle(c, "user", func(_ context.Context, userID string) (string, error) {
		return models.UserTopic(userID), nil
	})
}

func (h *Handler) handle(c *gin.Context, kind string, authorize func(ctx context.Context, userID string) (string, error)) {
	ctx, span := otel.Tracer("collab-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, err := h.verifier.Verify(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": apperr.InvalidToken})
		return
	}
	topic, err := authorize(ctx, id.UserID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": apperr.MessageOf(err), "code": apperr.CodeOf(err)})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      id.UserID,
		DeviceID:    c.GetHeader("X-Device-Id"),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	sub := h.hub.Subscribe(topic, kind, conn, info)

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	h.lifecycle(kind, topic, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.Unsubscribe(sub)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			h.lifecycle(kind, topic, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					h.lifecycle(kind, topic, "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}

func (h *Handler) lifecycle(kind, topic, event string, info ConnInfo, reason string) {
	if h.mirror == nil {
		return
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"topic":       topic,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	ctx := observability.WithRequestID(context.Background(), info.RequestID)
	if err := h.mirror.PublishEvent(ctx, "ws_events."+kind, event, payload); err != nil {
		h.log.Debug("ws lifecycle publish failed", zap.Error(err), zap.String("event", event))
	}
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
