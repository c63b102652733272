package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/apperr"
	"collab-service/internal/clock"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// NewChannel is the input to channel creation.
type NewChannel struct {
	Name        string             `validate:"required,max=80"`
	Description string             `validate:"max=500"`
	TeamID      string             `validate:"required"`
	Type        models.ChannelType `validate:"omitempty,oneof=public private"`
}

// ChannelService manages channels and their membership.
type ChannelService struct {
	channels repositories.ChannelRepository
	teams    repositories.TeamRepository
	users    repositories.UserRepository
	resolver *access.Resolver
	pub      publisher
	clock    clock.Clock
	log      *zap.Logger
}

// NewChannelService constructs a ChannelService.
func NewChannelService(channels repositories.ChannelRepository, teams repositories.TeamRepository,
	users repositories.UserRepository, resolver *access.Resolver, broadcaster Broadcaster,
	clk clock.Clock, logger *zap.Logger) *ChannelService {
	return &ChannelService{
		channels: channels,
		teams:    teams,
		users:    users,
		resolver: resolver,
		pub:      publisher{b: broadcaster, log: logger},
		clock:    clk,
		log:      logger,
	}
}

// Create adds a channel to the team with the creator as its first member.
func (s *ChannelService) Create(ctx context.Context, requesterID string, in NewChannel) (models.Channel, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Channel{}, err
	}
	if in.Type == "" {
		in.Type = models.ChannelPublic
	}
	if _, err := s.resolver.Team(ctx, in.TeamID, requesterID, access.RequireTeamMember); err != nil {
		return models.Channel{}, err
	}
	taken, err := s.channels.ChannelNameTaken(ctx, in.TeamID, in.Name, "")
	if err != nil {
		return models.Channel{}, classify("check channel name", err)
	}
	if taken {
		return models.Channel{}, apperr.New(apperr.DuplicateChannelName, "a channel with this name already exists in the team")
	}

	channel, err := s.channels.CreateChannel(ctx, models.Channel{
		Name:        in.Name,
		Description: in.Description,
		Team:        models.Unresolved[models.Team](in.TeamID),
		Type:        in.Type,
		MemberIDs:   []string{requesterID},
		CreatedBy:   requesterID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return models.Channel{}, classify("create channel", err)
	}
	if err := s.teams.AddTeamChannel(ctx, in.TeamID, channel.ID); err != nil {
		return models.Channel{}, classify("link channel to team", err)
	}
	s.log.Info("channel created", zap.String("channel_id", channel.ID), zap.String("team_id", in.TeamID))
	s.pub.publish(models.TeamTopic(in.TeamID), models.EventChannelCreated, channel)
	return channel, nil
}

// ListForTeam returns the public channels of the team plus the private ones
// the requester belongs to, oldest first.
func (s *ChannelService) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Channel, error) {
	scope, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireTeamMember)
	if err != nil {
		return nil, err
	}
	all, err := s.channels.ListChannelsForTeam(ctx, teamID)
	if err != nil {
		return nil, classify("list channels", err)
	}
	visible := make([]models.Channel, 0, len(all))
	for _, c := range all {
		if access.CanAccessChannel(c, scope.Team, requesterID) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// Get returns the channel, or nil when it does not exist. Authorization
// failures are still errors.
func (s *ChannelService) Get(ctx context.Context, channelID, requesterID string) (*models.Channel, error) {
	scope, err := s.resolver.Channel(ctx, channelID, requesterID, access.RequireChannelAccess)
	if err != nil {
		if apperr.Is(err, apperr.ChannelNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return scope.Channel, nil
}

// Update applies a partial update. Requires an owner or admin.
func (s *ChannelService) Update(ctx context.Context, channelID, requesterID string, patch models.ChannelPatch) (models.Channel, error) {
	scope, err := s.resolver.TeamOfChannel(ctx, channelID, requesterID, access.RequireAdmin)
	if err != nil {
		return models.Channel{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Channel{}, apperr.New(apperr.InvalidInput, "name must not be empty")
		}
		patch.Name = &name
		taken, err := s.channels.ChannelNameTaken(ctx, scope.Team.ID, name, channelID)
		if err != nil {
			return models.Channel{}, classify("check channel name", err)
		}
		if taken {
			return models.Channel{}, apperr.New(apperr.DuplicateChannelName, "a channel with this name already exists in the team")
		}
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return models.Channel{}, apperr.New(apperr.InvalidInput, "type must be public or private")
	}
	channel, err := s.channels.UpdateChannel(ctx, channelID, patch, s.clock.Now())
	return channel, classify("update channel", err)
}

// Delete unlinks the channel from its team and removes it. Messages are kept.
func (s *ChannelService) Delete(ctx context.Context, channelID, requesterID string) error {
	scope, err := s.resolver.TeamOfChannel(ctx, channelID, requesterID, access.RequireAdmin)
	if err != nil {
		return err
	}
	if err := s.teams.RemoveTeamChannel(ctx, scope.Team.ID, channelID); err != nil {
		return classify("unlink channel", err)
	}
	if err := s.channels.DeleteChannel(ctx, channelID); err != nil {
		return classify("delete channel", err)
	}
	s.log.Info("channel deleted", zap.String("channel_id", channelID), zap.String("team_id", scope.Team.ID))
	s.pub.publish(models.TeamTopic(scope.Team.ID), models.EventChannelDeleted,
		models.ChannelDeleted{ChannelID: channelID, TeamID: scope.Team.ID})
	return nil
}

// AddMember adds the team member registered under targetEmail.
func (s *ChannelService) AddMember(ctx context.Context, channelID, requesterID, targetEmail string) (models.Channel, error) {
	scope, err := s.resolver.TeamOfChannel(ctx, channelID, requesterID, access.RequireTeamMember)
	if err != nil {
		return models.Channel{}, err
	}
	target, err := s.users.GetUserByEmail(ctx, targetEmail)
	if err != nil {
		return models.Channel{}, classify("find user", err)
	}
	if !access.IsTeamMember(scope.Team, target.ID) {
		return models.Channel{}, apperr.New(apperr.NotTeamMember, "user is not a member of this team")
	}
	if scope.Channel.HasMember(target.ID) {
		return models.Channel{}, apperr.New(apperr.AlreadyMember, "user is already a channel member")
	}
	if err := s.channels.AddChannelMember(ctx, channelID, target.ID); err != nil {
		return models.Channel{}, classify("add channel member", err)
	}
	channel, err := s.channels.GetChannel(ctx, channelID)
	return channel, classify("load channel", err)
}

// RemoveMember removes targetID. Members may remove themselves; owners and
// admins may remove anyone.
func (s *ChannelService) RemoveMember(ctx context.Context, channelID, requesterID, targetID string) (models.Channel, error) {
	req := access.RequireAdmin
	if requesterID == targetID {
		req = access.RequireTeamMember
	}
	if _, err := s.resolver.TeamOfChannel(ctx, channelID, requesterID, req); err != nil {
		return models.Channel{}, err
	}
	if err := s.channels.RemoveChannelMember(ctx, channelID, targetID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return models.Channel{}, apperr.Wrap(apperr.InvalidInput, "user is not a channel member", err)
		}
		return models.Channel{}, classify("remove channel member", err)
	}
	channel, err := s.channels.GetChannel(ctx, channelID)
	return channel, classify("load channel", err)
}
