package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-service/internal/models"
	"collab-service/internal/services"
)

// TaskHandler serves team task endpoints.
type TaskHandler struct {
	tasks   TaskService
	auditor Auditor
}

func NewTaskHandler(tasks TaskService, auditor Auditor) *TaskHandler {
	return &TaskHandler{tasks: tasks, auditor: auditor}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		AssigneeIDs []string   `json:"assignee_ids"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), userIDFromContext(c), services.NewTask{
		TeamID:      c.Param("team_id"),
		Title:       req.Title,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListForTeam(c.Request.Context(), c.Param("team_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), c.Param("task_id"), userIDFromContext(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), c.Param("task_id"), userIDFromContext(c), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.tasks.Delete(c.Request.Context(), taskID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "task deleted: "+taskID)
	c.Status(http.StatusNoContent)
}
