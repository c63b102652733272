package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// TeamRepository abstracts team persistence.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team models.Team) (models.Team, error)
	GetTeam(ctx context.Context, teamID string) (models.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]models.Team, error)
	UpdateTeam(ctx context.Context, teamID string, name, description *string, at time.Time) (models.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error
	AddTeamMember(ctx context.Context, teamID string, member models.TeamMember) error
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	UpdateTeamMemberRole(ctx context.Context, teamID, userID string, role models.Role) error
	AddTeamChannel(ctx context.Context, teamID, channelID string) error
	RemoveTeamChannel(ctx context.Context, teamID, channelID string) error
}

// TeamRepo is a sqlx implementation of TeamRepository.
type TeamRepo struct {
	db *sqlx.DB
}

// NewTeamRepo constructs a TeamRepo.
func NewTeamRepo(db *sqlx.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

const teamColumns = `id, name, description, owner_id, created_at, updated_at`

// CreateTeam inserts the team and its owner membership atomically.
func (r *TeamRepo) CreateTeam(ctx context.Context, team models.Team) (created models.Team, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Team{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if team.ID == "" {
		team.ID = NewID()
	}
	if err = tx.QueryRowxContext(ctx, `INSERT INTO teams (id, name, description, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5) RETURNING `+teamColumns,
		team.ID, team.Name, team.Description, team.OwnerID, team.CreatedAt).StructScan(&created); err != nil {
		return models.Team{}, err
	}

	// the owner is always listed first
	members := append([]models.TeamMember{{UserID: team.OwnerID, Role: models.RoleOwner, JoinedAt: team.CreatedAt}}, team.Members...)
	seen := map[string]struct{}{}
	for _, m := range members {
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		if _, err = tx.ExecContext(ctx, `INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			created.ID, m.UserID, m.Role, m.JoinedAt); err != nil {
			return models.Team{}, err
		}
		created.Members = append(created.Members, m)
	}
	created.ChannelIDs = []string{}

	if err = tx.Commit(); err != nil {
		return models.Team{}, err
	}
	return created, nil
}

// GetTeam fetches a team with its members and channel ids.
func (r *TeamRepo) GetTeam(ctx context.Context, teamID string) (models.Team, error) {
	var team models.Team
	err := r.db.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams WHERE id=$1`, teamID)
	if err != nil {
		return models.Team{}, notFound(err, ErrTeamNotFound)
	}
	teams := []models.Team{team}
	if err := r.hydrate(ctx, teams); err != nil {
		return models.Team{}, err
	}
	return teams[0], nil
}

// ListTeamsForUser returns teams the user owns or belongs to, oldest first.
func (r *TeamRepo) ListTeamsForUser(ctx context.Context, userID string) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.SelectContext(ctx, &teams, `SELECT `+teamColumns+` FROM teams
        WHERE owner_id=$1 OR id IN (SELECT team_id FROM team_members WHERE user_id=$1)
        ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// UpdateTeam applies a partial update.
func (r *TeamRepo) UpdateTeam(ctx context.Context, teamID string, name, description *string, at time.Time) (models.Team, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE teams SET
        name = COALESCE($2, name),
        description = COALESCE($3, description),
        updated_at = $4
        WHERE id=$1`, teamID, name, description, at)
	if err != nil {
		return models.Team{}, notFound(err, ErrTeamNotFound)
	}
	if err := rowsAffected(res, ErrTeamNotFound); err != nil {
		return models.Team{}, err
	}
	return r.GetTeam(ctx, teamID)
}

// DeleteTeam removes a team. Memberships cascade.
func (r *TeamRepo) DeleteTeam(ctx context.Context, teamID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id=$1`, teamID)
	if err != nil {
		return notFound(err, ErrTeamNotFound)
	}
	return rowsAffected(res, ErrTeamNotFound)
}

// AddTeamMember appends a member entry.
func (r *TeamRepo) AddTeamMember(ctx context.Context, teamID string, member models.TeamMember) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		teamID, member.UserID, member.Role, member.JoinedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return err
}

// RemoveTeamMember deletes a member entry.
func (r *TeamRepo) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id=$1 AND user_id=$2`, teamID, userID)
	if err != nil {
		return notFound(err, ErrMemberNotFound)
	}
	return rowsAffected(res, ErrMemberNotFound)
}

// UpdateTeamMemberRole changes a member's role.
func (r *TeamRepo) UpdateTeamMemberRole(ctx context.Context, teamID, userID string, role models.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE team_members SET role=$3 WHERE team_id=$1 AND user_id=$2`, teamID, userID, role)
	if err != nil {
		return notFound(err, ErrMemberNotFound)
	}
	return rowsAffected(res, ErrMemberNotFound)
}

// AddTeamChannel appends channelID to the team's channel set.
func (r *TeamRepo) AddTeamChannel(ctx context.Context, teamID, channelID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO team_channels (team_id, channel_id, added_at) VALUES ($1, $2, NOW())
        ON CONFLICT (team_id, channel_id) DO NOTHING`, teamID, channelID)
	return err
}

// RemoveTeamChannel removes channelID from the team's channel set.
func (r *TeamRepo) RemoveTeamChannel(ctx context.Context, teamID, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM team_channels WHERE team_id=$1 AND channel_id=$2`, teamID, channelID)
	return err
}

func (r *TeamRepo) hydrate(ctx context.Context, teams []models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]string, len(teams))
	index := make(map[string]int, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
		index[t.ID] = i
		teams[i].Members = []models.TeamMember{}
		teams[i].ChannelIDs = []string{}
	}

	var members []struct {
		TeamID string `db:"team_id"`
		models.TeamMember
	}
	if err := r.db.SelectContext(ctx, &members, `SELECT team_id, user_id, role, joined_at FROM team_members
        WHERE team_id = ANY($1::uuid[]) ORDER BY joined_at ASC, user_id ASC`, pq.Array(ids)); err != nil && err != sql.ErrNoRows {
		return err
	}
	for _, m := range members {
		i := index[m.TeamID]
		teams[i].Members = append(teams[i].Members, m.TeamMember)
	}

	var channels []struct {
		TeamID    string `db:"team_id"`
		ChannelID string `db:"channel_id"`
	}
	if err := r.db.SelectContext(ctx, &channels, `SELECT team_id, channel_id FROM team_channels
        WHERE team_id = ANY($1::uuid[]) ORDER BY added_at ASC, channel_id ASC`, pq.Array(ids)); err != nil && err != sql.ErrNoRows {
		return err
	}
	for _, c := range channels {
		i := index[c.TeamID]
		teams[i].ChannelIDs = append(teams[i].ChannelIDs, c.ChannelID)
	}
	return nil
}
