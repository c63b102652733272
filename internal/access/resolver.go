package access

import (
	"context"
	"errors"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// TeamGetter loads a team with its members.
type TeamGetter interface {
	GetTeam(ctx context.Context, teamID string) (models.Team, error)
}

// ChannelGetter loads a channel with its members.
type ChannelGetter interface {
	GetChannel(ctx context.Context, channelID string) (models.Channel, error)
}

// Scope is the resolved context of an authorized call.
type Scope struct {
	Team    models.Team
	Channel *models.Channel
	UserID  string
	Role    models.Role
}

// Resolver loads teams and channels and evaluates requirements against them.
type Resolver struct {
	teams    TeamGetter
	channels ChannelGetter
}

// NewResolver constructs a Resolver.
func NewResolver(teams TeamGetter, channels ChannelGetter) *Resolver {
	return &Resolver{teams: teams, channels: channels}
}

// Team resolves teamID and checks req.
func (r *Resolver) Team(ctx context.Context, teamID, userID string, req Requirement) (Scope, error) {
	team, err := r.loadTeam(ctx, teamID)
	if err != nil {
		return Scope{}, err
	}
	if err := Evaluate(req, team, nil, userID); err != nil {
		return Scope{}, err
	}
	role, _ := RoleOf(team, userID)
	return Scope{Team: team, UserID: userID, Role: role}, nil
}

// Channel resolves channelID and its team, then checks req.
// RequireChannelAccess is always enforced in addition to req.
func (r *Resolver) Channel(ctx context.Context, channelID, userID string, req Requirement) (Scope, error) {
	channel, err := r.loadChannel(ctx, channelID)
	if err != nil {
		return Scope{}, err
	}
	return r.ForChannel(ctx, channel, userID, req)
}

// ForChannel is Channel for an already-loaded channel.
func (r *Resolver) ForChannel(ctx context.Context, channel models.Channel, userID string, req Requirement) (Scope, error) {
	team, err := r.loadTeam(ctx, channel.Team.ID())
	if err != nil {
		return Scope{}, err
	}
	channel.Team = channel.Team.Resolve(team)
	if err := Evaluate(RequireChannelAccess, team, &channel, userID); err != nil {
		return Scope{}, err
	}
	if req != RequireChannelAccess && req != RequireTeamMember {
		if err := Evaluate(req, team, &channel, userID); err != nil {
			return Scope{}, err
		}
	}
	role, _ := RoleOf(team, userID)
	return Scope{Team: team, Channel: &channel, UserID: userID, Role: role}, nil
}

// TeamOfChannel resolves a channel's team and checks req on the team only.
// Used by operations that admins may perform on private channels they are not in.
func (r *Resolver) TeamOfChannel(ctx context.Context, channelID, userID string, req Requirement) (Scope, error) {
	channel, err := r.loadChannel(ctx, channelID)
	if err != nil {
		return Scope{}, err
	}
	team, err := r.loadTeam(ctx, channel.Team.ID())
	if err != nil {
		return Scope{}, err
	}
	channel.Team = channel.Team.Resolve(team)
	if err := Evaluate(req, team, &channel, userID); err != nil {
		return Scope{}, err
	}
	role, _ := RoleOf(team, userID)
	return Scope{Team: team, Channel: &channel, UserID: userID, Role: role}, nil
}

func (r *Resolver) loadTeam(ctx context.Context, teamID string) (models.Team, error) {
	team, err := r.teams.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return models.Team{}, apperr.New(apperr.TeamNotFound, "team not found")
		}
		return models.Team{}, apperr.Store("load team", err)
	}
	return team, nil
}

func (r *Resolver) loadChannel(ctx context.Context, channelID string) (models.Channel, error) {
	channel, err := r.channels.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return models.Channel{}, apperr.New(apperr.ChannelNotFound, "channel not found")
		}
		return models.Channel{}, apperr.Store("load channel", err)
	}
	return channel, nil
}
