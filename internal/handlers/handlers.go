// Package handlers exposes the workspace services over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/services"
)

type TeamService interface {
	Create(ctx context.Context, ownerID string, in services.NewTeam) (models.Team, error)
	Get(ctx context.Context, teamID, requesterID string) (models.Team, error)
	ListForUser(ctx context.Context, userID string) ([]models.Team, error)
	Update(ctx context.Context, teamID, requesterID string, name, description *string) (models.Team, error)
	Delete(ctx context.Context, teamID, requesterID string) error
	AddMember(ctx context.Context, teamID, requesterID, email string, role models.Role) (models.Team, error)
	RemoveMember(ctx context.Context, teamID, requesterID, targetID string) (models.Team, error)
	UpdateMemberRole(ctx context.Context, teamID, requesterID, targetID string, role models.Role) (models.Team, error)
}

type ChannelService interface {
	Create(ctx context.Context, requesterID string, in services.NewChannel) (models.Channel, error)
	ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Channel, error)
	Get(ctx context.Context, channelID, requesterID string) (*models.Channel, error)
	Update(ctx context.Context, channelID, requesterID string, patch models.ChannelPatch) (models.Channel, error)
	Delete(ctx context.Context, channelID, requesterID string) error
	AddMember(ctx context.Context, channelID, requesterID, targetEmail string) (models.Channel, error)
	RemoveMember(ctx context.Context, channelID, requesterID, targetID string) (models.Channel, error)
}

type ReadService interface {
	MarkRead(ctx context.Context, userID, channelID string) (models.ChannelRead, error)
	UnreadCount(ctx context.Context, userID, channelID string) (int, error)
	UnreadCountsForTeam(ctx context.Context, userID, teamID string) (map[string]int, error)
}

type MessageService interface {
	Create(ctx context.Context, in models.NewMessage) (models.Message, error)
	List(ctx context.Context, channelID, requesterID string, limit int, beforeID string) ([]models.Message, error)
	Search(ctx context.Context, channelID, requesterID, query string, limit int) ([]models.Message, error)
	Get(ctx context.Context, messageID, requesterID string) (models.Message, error)
	Update(ctx context.Context, messageID, requesterID, content string) (models.Message, error)
	Delete(ctx context.Context, messageID, requesterID string) error
	AddReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error)
	RemoveReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error)
}

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, notificationID, userID string) error
}

type TaskService interface {
	Create(ctx context.Context, requesterID string, in services.NewTask) (models.Task, error)
	ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Task, error)
	Update(ctx context.Context, taskID, requesterID string, patch models.TaskPatch) (models.Task, error)
	UpdateStatus(ctx context.Context, taskID, requesterID string, status models.TaskStatus) (models.Task, error)
	Delete(ctx context.Context, taskID, requesterID string) error
}

type MeetingService interface {
	Schedule(ctx context.Context, requesterID string, in services.NewMeeting) (models.Meeting, error)
	ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Meeting, error)
	Start(ctx context.Context, meetingID, requesterID string) (models.Meeting, error)
	End(ctx context.Context, meetingID, requesterID string) (models.Meeting, error)
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// statusFor maps an error's Kind onto an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": apperr.MessageOf(err), "code": apperr.CodeOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperr.InvalidInput})
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
