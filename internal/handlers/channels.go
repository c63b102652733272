package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/services"
)

// ChannelHandler serves channel, channel-membership and read-state endpoints.
type ChannelHandler struct {
	channels ChannelService
	reads    ReadService
	auditor  Auditor
}

func NewChannelHandler(channels ChannelService, reads ReadService, auditor Auditor) *ChannelHandler {
	return &ChannelHandler{channels: channels, reads: reads, auditor: auditor}
}

func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Type        models.ChannelType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	channel, err := h.channels.Create(c.Request.Context(), userIDFromContext(c), services.NewChannel{
		Name:        req.Name,
		Description: req.Description,
		TeamID:      c.Param("team_id"),
		Type:        req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "channel created: "+channel.ID)
	c.JSON(http.StatusCreated, channel)
}

// ListChannels returns the team's channels visible to the caller.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.ListForTeam(c.Request.Context(), c.Param("team_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channel, err := h.channels.Get(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if channel == nil {
		respondError(c, apperr.New(apperr.ChannelNotFound, "channel not found"))
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	var patch models.ChannelPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	channel, err := h.channels.Update(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	channelID := c.Param("channel_id")
	if err := h.channels.Delete(c.Request.Context(), channelID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "channel deleted: "+channelID)
	c.Status(http.StatusNoContent)
}

func (h *ChannelHandler) AddMember(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	channel, err := h.channels.AddMember(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	channel, err := h.channels.RemoveMember(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

// MarkRead moves the caller's read watermark for the channel to now.
func (h *ChannelHandler) MarkRead(c *gin.Context) {
	read, err := h.reads.MarkRead(c.Request.Context(), userIDFromContext(c), c.Param("channel_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, read)
}

func (h *ChannelHandler) UnreadCount(c *gin.Context) {
	channelID := c.Param("channel_id")
	count, err := h.reads.UnreadCount(c.Request.Context(), userIDFromContext(c), channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "unread": count})
}
