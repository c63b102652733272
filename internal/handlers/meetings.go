package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-service/internal/services"
)

// MeetingHandler serves meeting scheduling and lifecycle endpoints.
type MeetingHandler struct {
	meetings MeetingService
}

func NewMeetingHandler(meetings MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

func (h *MeetingHandler) ScheduleMeeting(c *gin.Context) {
	var req struct {
		Title          string    `json:"title"`
		Description    string    `json:"description"`
		ScheduledAt    time.Time `json:"scheduled_at"`
		ParticipantIDs []string  `json:"participant_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meeting, err := h.meetings.Schedule(c.Request.Context(), userIDFromContext(c), services.NewMeeting{
		TeamID:         c.Param("team_id"),
		Title:          req.Title,
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	meetings, err := h.meetings.ListForTeam(c.Request.Context(), c.Param("team_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (h *MeetingHandler) StartMeeting(c *gin.Context) {
	meeting, err := h.meetings.Start(c.Request.Context(), c.Param("meeting_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meeting)
}

func (h *MeetingHandler) EndMeeting(c *gin.Context) {
	meeting, err := h.meetings.End(c.Request.Context(), c.Param("meeting_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meeting)
}
