package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/models"
)

// MessageHandler serves message, search and reaction endpoints.
type MessageHandler struct {
	messages MessageService
	auditor  Auditor
}

func NewMessageHandler(messages MessageService, auditor Auditor) *MessageHandler {
	return &MessageHandler{messages: messages, auditor: auditor}
}

// ListMessages returns one page of channel history, oldest first. The
// before query parameter is the id of the oldest message already seen.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, errors.New("invalid limit"))
		return
	}

	msgs, err := h.messages.List(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c), limit, c.Query("before"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message; broadcast and mention fanout happen in the service.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content   string             `json:"content"`
		Type      models.MessageType `json:"type"`
		File      *models.FileMeta   `json:"file"`
		MediaType string             `json:"media_type"`
		ReplyTo   *string            `json:"reply_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), models.NewMessage{
		ChannelID: c.Param("channel_id"),
		SenderID:  userIDFromContext(c),
		Content:   req.Content,
		Type:      req.Type,
		File:      req.File,
		MediaType: req.MediaType,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) SearchMessages(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, errors.New("q is required"))
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, errors.New("invalid limit"))
		return
	}

	msgs, err := h.messages.Search(c.Request.Context(), c.Param("channel_id"), userIDFromContext(c), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, err := h.messages.Get(c.Request.Context(), c.Param("message_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messages.Update(c.Request.Context(), c.Param("message_id"), userIDFromContext(c), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := h.messages.Delete(c.Request.Context(), messageID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "message deleted: "+messageID)
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) AddReaction(c *gin.Context) {
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messages.AddReaction(c.Request.Context(), c.Param("message_id"), userIDFromContext(c), req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	emoji := c.Query("emoji")
	if emoji == "" {
		badRequest(c, errors.New("emoji is required"))
		return
	}

	msg, err := h.messages.RemoveReaction(c.Request.Context(), c.Param("message_id"), userIDFromContext(c), emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
