package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/models"
	"collab-service/internal/services"
)

// TeamHandler serves team and team-membership endpoints.
type TeamHandler struct {
	teams   TeamService
	reads   ReadService
	auditor Auditor
}

// NewTeamHandler builds a TeamHandler. auditor may be nil.
func NewTeamHandler(teams TeamService, reads ReadService, auditor Auditor) *TeamHandler {
	return &TeamHandler{teams: teams, reads: reads, auditor: auditor}
}

// CreateTeam creates a team owned by the caller.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	team, err := h.teams.Create(c.Request.Context(), userIDFromContext(c), services.NewTeam{Name: req.Name, Description: req.Description})
	if err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "team created: "+team.ID)
	c.JSON(http.StatusCreated, team)
}

// ListTeams returns the caller's teams.
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teams.ListForUser(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, err := h.teams.Get(c.Request.Context(), c.Param("team_id"), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	team, err := h.teams.Update(c.Request.Context(), c.Param("team_id"), userIDFromContext(c), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	teamID := c.Param("team_id")
	if err := h.teams.Delete(c.Request.Context(), teamID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.auditor, "team deleted: "+teamID)
	c.Status(http.StatusNoContent)
}

// AddMember adds a user, looked up by email, to the team.
func (h *TeamHandler) AddMember(c *gin.Context) {
	var req struct {
		Email string      `json:"email" binding:"required"`
		Role  models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	team, err := h.teams.AddMember(c.Request.Context(), c.Param("team_id"), userIDFromContext(c), req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	team, err := h.teams.RemoveMember(c.Request.Context(), c.Param("team_id"), userIDFromContext(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	team, err := h.teams.UpdateMemberRole(c.Request.Context(), c.Param("team_id"), userIDFromContext(c), c.Param("user_id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// UnreadCounts returns the caller's unread count for every accessible channel of the team.
func (h *TeamHandler) UnreadCounts(c *gin.Context) {
	counts, err := h.reads.UnreadCountsForTeam(c.Request.Context(), userIDFromContext(c), c.Param("team_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": counts})
}
