package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

func testTeam() models.Team {
	return models.Team{
		ID:      "t1",
		OwnerID: "owner",
		Members: []models.TeamMember{
			{UserID: "admin", Role: models.RoleAdmin},
			{UserID: "member", Role: models.RoleMember},
		},
	}
}

func TestIsTeamMember(t *testing.T) {
	team := testTeam()
	assert.True(t, IsTeamMember(team, "owner"))
	assert.True(t, IsTeamMember(team, "member"))
	assert.False(t, IsTeamMember(team, "stranger"))
	assert.False(t, IsTeamMember(team, ""))

	team.Members = nil
	assert.True(t, IsTeamMember(team, "owner"), "owner is a member even when unlisted")
}

func TestRoleOf(t *testing.T) {
	team := testTeam()
	team.Members = append(team.Members, models.TeamMember{UserID: "owner", Role: models.RoleMember})

	role, ok := RoleOf(team, "owner")
	require.True(t, ok)
	assert.Equal(t, models.RoleOwner, role)

	role, ok = RoleOf(team, "admin")
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, role)

	_, ok = RoleOf(team, "stranger")
	assert.False(t, ok)

	assert.True(t, CanAdminister(team, "owner"))
	assert.True(t, CanAdminister(team, "admin"))
	assert.False(t, CanAdminister(team, "member"))
}

func TestCanAccessChannel(t *testing.T) {
	team := testTeam()
	public := models.Channel{ID: "c1", Type: models.ChannelPublic}
	private := models.Channel{ID: "c2", Type: models.ChannelPrivate, MemberIDs: []string{"member"}}

	assert.True(t, CanAccessChannel(public, team, "member"))
	assert.False(t, CanAccessChannel(public, team, "stranger"))
	assert.True(t, CanAccessChannel(private, team, "member"))
	assert.False(t, CanAccessChannel(private, team, "owner"), "owners need channel membership too")

	private.MemberIDs = append(private.MemberIDs, "stranger")
	assert.False(t, CanAccessChannel(private, team, "stranger"), "channel membership alone is not enough")
}

func TestEvaluate(t *testing.T) {
	team := testTeam()
	private := models.Channel{ID: "c2", Type: models.ChannelPrivate, MemberIDs: []string{"admin"}}

	cases := []struct {
		name    string
		req     Requirement
		channel *models.Channel
		user    string
		code    apperr.Code
	}{
		{"member passes", RequireTeamMember, nil, "member", ""},
		{"stranger fails membership first", RequireOwner, nil, "stranger", apperr.NotTeamMember},
		{"private channel member", RequireChannelAccess, &private, "admin", ""},
		{"private channel outsider", RequireChannelAccess, &private, "member", apperr.ChannelPrivateForbidden},
		{"missing channel", RequireChannelAccess, nil, "member", apperr.ChannelNotFound},
		{"admin passes admin", RequireAdmin, nil, "admin", ""},
		{"owner passes admin", RequireAdmin, nil, "owner", ""},
		{"member fails admin", RequireAdmin, nil, "member", apperr.InsufficientRole},
		{"admin fails owner", RequireOwner, nil, "admin", apperr.InsufficientRole},
		{"owner passes owner", RequireOwner, nil, "owner", ""},
		{"unknown requirement", Requirement(42), nil, "owner", apperr.InsufficientRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Evaluate(tc.req, team, tc.channel, tc.user)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, tc.code), "got %v", err)
		})
	}
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "channel_access", RequireChannelAccess.String())
	assert.Equal(t, "unknown", Requirement(9).String())
}

type fakeStore struct {
	teams    map[string]models.Team
	channels map[string]models.Channel
	err      error
}

func (f *fakeStore) GetTeam(_ context.Context, id string) (models.Team, error) {
	if f.err != nil {
		return models.Team{}, f.err
	}
	t, ok := f.teams[id]
	if !ok {
		return models.Team{}, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (f *fakeStore) GetChannel(_ context.Context, id string) (models.Channel, error) {
	c, ok := f.channels[id]
	if !ok {
		return models.Channel{}, repositories.ErrChannelNotFound
	}
	return c, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams: map[string]models.Team{"t1": testTeam()},
		channels: map[string]models.Channel{
			"pub":    {ID: "pub", Team: models.Unresolved[models.Team]("t1"), Type: models.ChannelPublic},
			"priv":   {ID: "priv", Team: models.Unresolved[models.Team]("t1"), Type: models.ChannelPrivate, MemberIDs: []string{"member"}},
			"orphan": {ID: "orphan", Team: models.Unresolved[models.Team]("gone"), Type: models.ChannelPublic},
		},
	}
}

func TestResolverTeam(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, store)
	ctx := context.Background()

	scope, err := r.Team(ctx, "t1", "admin", RequireAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, scope.Role)
	assert.Nil(t, scope.Channel)

	_, err = r.Team(ctx, "missing", "admin", RequireTeamMember)
	assert.True(t, apperr.Is(err, apperr.TeamNotFound))

	store.err = errors.New("connection refused")
	_, err = r.Team(ctx, "t1", "admin", RequireTeamMember)
	assert.True(t, apperr.Is(err, apperr.StoreError))
	assert.ErrorIs(t, err, store.err)
}

func TestResolverChannel(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, store)
	ctx := context.Background()

	scope, err := r.Channel(ctx, "priv", "member", RequireTeamMember)
	require.NoError(t, err)
	require.NotNil(t, scope.Channel)
	team, ok := scope.Channel.Team.Get()
	require.True(t, ok)
	assert.Equal(t, "t1", team.ID)

	_, err = r.Channel(ctx, "priv", "owner", RequireAdmin)
	assert.True(t, apperr.Is(err, apperr.ChannelPrivateForbidden))
	_, err = r.Channel(ctx, "pub", "member", RequireAdmin)
	assert.True(t, apperr.Is(err, apperr.InsufficientRole))
	_, err = r.Channel(ctx, "missing", "member", RequireChannelAccess)
	assert.True(t, apperr.Is(err, apperr.ChannelNotFound))
	_, err = r.Channel(ctx, "orphan", "member", RequireChannelAccess)
	assert.True(t, apperr.Is(err, apperr.TeamNotFound))
}

func TestResolverTeamOfChannelSkipsChannelAccess(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, store)
	ctx := context.Background()

	scope, err := r.TeamOfChannel(ctx, "priv", "owner", RequireAdmin)
	require.NoError(t, err)
	assert.Equal(t, "priv", scope.Channel.ID)
	assert.Equal(t, models.RoleOwner, scope.Role)

	_, err = r.TeamOfChannel(ctx, "priv", "stranger", RequireTeamMember)
	assert.True(t, apperr.Is(err, apperr.NotTeamMember))
}
