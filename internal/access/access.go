// Package access resolves team and channel permissions. Every permission
// check in the service goes through this package.
package access

import (
	"collab-service/internal/apperr"
	"collab-service/internal/models"
)

// IsTeamMember reports whether userID is the team owner or a listed member.
func IsTeamMember(team models.Team, userID string) bool {
	if userID == "" {
		return false
	}
	if team.OwnerID == userID {
		return true
	}
	_, ok := team.Member(userID)
	return ok
}

// RoleOf returns the user's role in the team. The owner is always RoleOwner
// whether or not they appear in the member list.
func RoleOf(team models.Team, userID string) (models.Role, bool) {
	if userID == "" {
		return "", false
	}
	if team.OwnerID == userID {
		return models.RoleOwner, true
	}
	if m, ok := team.Member(userID); ok {
		return m.Role, true
	}
	return "", false
}

// CanAdminister reports whether userID is the team owner or an admin.
func CanAdminister(team models.Team, userID string) bool {
	role, ok := RoleOf(team, userID)
	return ok && (role == models.RoleOwner || role == models.RoleAdmin)
}

// CanAccessChannel requires team membership, and channel membership when the
// channel is private.
func CanAccessChannel(channel models.Channel, team models.Team, userID string) bool {
	if !IsTeamMember(team, userID) {
		return false
	}
	if channel.Type == models.ChannelPrivate {
		return channel.HasMember(userID)
	}
	return true
}

// Requirement is a capability a caller must hold.
type Requirement int

const (
	RequireTeamMember Requirement = iota
	RequireChannelAccess
	RequireAdmin
	RequireOwner
)

func (r Requirement) String() string {
	switch r {
	case RequireTeamMember:
		return "team_member"
	case RequireChannelAccess:
		return "channel_access"
	case RequireAdmin:
		return "admin"
	case RequireOwner:
		return "owner"
	}
	return "unknown"
}

// Evaluate checks req for userID against team and, for RequireChannelAccess,
// channel. Membership is always checked first so non-members get
// NotTeamMember rather than a role error.
func Evaluate(req Requirement, team models.Team, channel *models.Channel, userID string) error {
	if !IsTeamMember(team, userID) {
		return apperr.New(apperr.NotTeamMember, "not a team member")
	}
	switch req {
	case RequireTeamMember:
		return nil
	case RequireChannelAccess:
		if channel == nil {
			return apperr.New(apperr.ChannelNotFound, "channel not found")
		}
		if !CanAccessChannel(*channel, team, userID) {
			return apperr.New(apperr.ChannelPrivateForbidden, "channel is private")
		}
		return nil
	case RequireAdmin:
		if !CanAdminister(team, userID) {
			return apperr.New(apperr.InsufficientRole, "admin role required")
		}
		return nil
	case RequireOwner:
		if team.OwnerID != userID {
			return apperr.New(apperr.InsufficientRole, "owner role required")
		}
		return nil
	}
	return apperr.New(apperr.InsufficientRole, "unknown requirement")
}
