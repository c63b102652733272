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

// NewTeam is the input to team creation.
type NewTeam struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=1000"`
}

// TeamService manages teams and team membership.
type TeamService struct {
	teams    repositories.TeamRepository
	users    repositories.UserRepository
	resolver *access.Resolver
	notifier *NotificationService
	pub      publisher
	clock    clock.Clock
	log      *zap.Logger
}

// NewTeamService constructs a TeamService.
func NewTeamService(teams repositories.TeamRepository, users repositories.UserRepository, resolver *access.Resolver,
	notifier *NotificationService, broadcaster Broadcaster, clk clock.Clock, logger *zap.Logger) *TeamService {
	return &TeamService{
		teams:    teams,
		users:    users,
		resolver: resolver,
		notifier: notifier,
		pub:      publisher{b: broadcaster, log: logger},
		clock:    clk,
		log:      logger,
	}
}

// Create makes ownerID the owner and first member of a new team.
func (s *TeamService) Create(ctx context.Context, ownerID string, in NewTeam) (models.Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Team{}, err
	}
	team, err := s.teams.CreateTeam(ctx, models.Team{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     ownerID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return models.Team{}, classify("create team", err)
	}
	s.log.Info("team created", zap.String("team_id", team.ID), zap.String("owner_id", ownerID))
	return team, nil
}

// Get returns the team to one of its members.
func (s *TeamService) Get(ctx context.Context, teamID, requesterID string) (models.Team, error) {
	scope, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireTeamMember)
	return scope.Team, err
}

// ListForUser returns the teams userID owns or belongs to.
func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	teams, err := s.teams.ListTeamsForUser(ctx, userID)
	return teams, classify("list teams", err)
}

// Update changes name and description. Requires an owner or admin.
func (s *TeamService) Update(ctx context.Context, teamID, requesterID string, name, description *string) (models.Team, error) {
	if _, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireAdmin); err != nil {
		return models.Team{}, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return models.Team{}, apperr.New(apperr.InvalidInput, "name must not be empty")
		}
		name = &trimmed
	}
	team, err := s.teams.UpdateTeam(ctx, teamID, name, description, s.clock.Now())
	return team, classify("update team", err)
}

// Delete removes the team. Only its owner may do so.
func (s *TeamService) Delete(ctx context.Context, teamID, requesterID string) error {
	if _, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireOwner); err != nil {
		return err
	}
	if err := s.teams.DeleteTeam(ctx, teamID); err != nil {
		return classify("delete team", err)
	}
	s.log.Info("team deleted", zap.String("team_id", teamID))
	return nil
}

// AddMember adds the user registered under email with role.
func (s *TeamService) AddMember(ctx context.Context, teamID, requesterID, email string, role models.Role) (models.Team, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return models.Team{}, apperr.New(apperr.InvalidInput, "role must be admin or member")
	}
	scope, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireAdmin)
	if err != nil {
		return models.Team{}, err
	}
	target, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return models.Team{}, classify("find user", err)
	}
	if access.IsTeamMember(scope.Team, target.ID) {
		return models.Team{}, apperr.New(apperr.AlreadyMember, "user is already a team member")
	}
	if err := s.teams.AddTeamMember(ctx, teamID, models.TeamMember{UserID: target.ID, Role: role, JoinedAt: s.clock.Now()}); err != nil {
		return models.Team{}, classify("add team member", err)
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, classify("load team", err)
	}
	related := team.ID
	s.notifier.Notify(ctx, without([]string{target.ID}, requesterID), models.Notification{
		Type:      models.NotifyTeamInvite,
		Title:     "Added to " + team.Name,
		Body:      "You were added to the team " + team.Name + ".",
		RelatedID: &related,
	})
	s.pub.publish(models.TeamTopic(teamID), models.EventMemberAdded,
		models.TeamMemberEvent{TeamID: teamID, UserID: target.ID, Role: role})
	return team, nil
}

// RemoveMember removes targetID. The owner can never be removed.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, requesterID, targetID string) (models.Team, error) {
	req := access.RequireAdmin
	if requesterID == targetID {
		req = access.RequireTeamMember
	}
	scope, err := s.resolver.Team(ctx, teamID, requesterID, req)
	if err != nil {
		return models.Team{}, err
	}
	if targetID == scope.Team.OwnerID {
		return models.Team{}, apperr.New(apperr.CannotRemoveOwner, "the team owner cannot be removed")
	}
	if err := s.teams.RemoveTeamMember(ctx, teamID, targetID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return models.Team{}, apperr.Wrap(apperr.InvalidInput, "user is not a team member", err)
		}
		return models.Team{}, classify("remove team member", err)
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, classify("load team", err)
	}
	s.pub.publish(models.TeamTopic(teamID), models.EventMemberRemoved,
		models.TeamMemberEvent{TeamID: teamID, UserID: targetID})
	return team, nil
}

// UpdateMemberRole changes a member's role. The owner's role is fixed.
func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, requesterID, targetID string, role models.Role) (models.Team, error) {
	if role != models.RoleMember && role != models.RoleAdmin {
		return models.Team{}, apperr.New(apperr.InvalidInput, "role must be admin or member")
	}
	scope, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireAdmin)
	if err != nil {
		return models.Team{}, err
	}
	if targetID == scope.Team.OwnerID {
		return models.Team{}, apperr.New(apperr.InsufficientRole, "the owner's role cannot be changed")
	}
	if err := s.teams.UpdateTeamMemberRole(ctx, teamID, targetID, role); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return models.Team{}, apperr.Wrap(apperr.InvalidInput, "user is not a team member", err)
		}
		return models.Team{}, classify("update member role", err)
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	return team, classify("load team", err)
}
