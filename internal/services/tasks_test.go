package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/services"
)

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob, stranger := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob"), f.user(t, "stranger")
	team := f.team(t, owner, alice, bob)

	_, err := f.tasks.Create(f.ctx, owner.ID, services.NewTask{TeamID: team.ID, Title: "x", AssigneeIDs: []string{stranger.ID}})
	assert.True(t, apperr.Is(err, apperr.NotTeamMember))
	_, err = f.tasks.Create(f.ctx, owner.ID, services.NewTask{TeamID: team.ID, Title: "   "})
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
	_, err = f.tasks.Create(f.ctx, stranger.ID, services.NewTask{TeamID: team.ID, Title: "x"})
	assert.True(t, apperr.Is(err, apperr.NotTeamMember))

	task, err := f.tasks.Create(f.ctx, owner.ID, services.NewTask{
		TeamID:      team.ID,
		Title:       "Ship the release",
		AssigneeIDs: []string{owner.ID, alice.ID, alice.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, owner.ID, task.CreatorID)
	assert.Equal(t, []string{owner.ID, alice.ID}, task.AssigneeIDs)

	assert.Empty(t, f.inbox(t, owner.ID, models.NotifyTask))
	got := f.inbox(t, alice.ID, models.NotifyTask)
	require.Len(t, got, 1)
	assert.Equal(t, "New task assigned", got[0].Title)
	assert.Equal(t, "Ship the release", got[0].Body)
	assert.Empty(t, f.inbox(t, bob.ID, models.NotifyTask))

	events := f.bus.named(models.EventTaskCreated)
	require.Len(t, events, 1)
	assert.Equal(t, models.TeamTopic(team.ID), events[0].topic)

	list, err := f.tasks.ListForTeam(f.ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateTaskNotifiesNewAssigneesOnly(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	team := f.team(t, owner, alice, bob)
	task, err := f.tasks.Create(f.ctx, owner.ID, services.NewTask{TeamID: team.ID, Title: "Write docs", AssigneeIDs: []string{alice.ID}})
	require.NoError(t, err)

	title := "Hijack"
	_, err = f.tasks.Update(f.ctx, task.ID, bob.ID, models.TaskPatch{Title: &title})
	assert.True(t, apperr.Is(err, apperr.InsufficientRole))

	assignees := []string{alice.ID, bob.ID}
	title = "Write better docs"
	updated, err := f.tasks.Update(f.ctx, task.ID, owner.ID, models.TaskPatch{Title: &title, AssigneeIDs: &assignees})
	require.NoError(t, err)
	assert.Equal(t, "Write better docs", updated.Title)
	assert.Equal(t, assignees, updated.AssigneeIDs)

	assert.Len(t, f.inbox(t, alice.ID, models.NotifyTask), 1)
	assert.Len(t, f.inbox(t, bob.ID, models.NotifyTask), 1)
	assert.Len(t, f.bus.named(models.EventTaskUpdated), 1)

	outsider := f.user(t, "outsider")
	bad := []string{outsider.ID}
	_, err = f.tasks.Update(f.ctx, task.ID, owner.ID, models.TaskPatch{AssigneeIDs: &bad})
	assert.True(t, apperr.Is(err, apperr.NotTeamMember))
}

func TestUpdateTaskStatus(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	team := f.team(t, owner, alice, bob)
	task, err := f.tasks.Create(f.ctx, owner.ID, services.NewTask{TeamID: team.ID, Title: "Review", AssigneeIDs: []string{alice.ID}})
	require.NoError(t, err)

	_, err = f.tasks.UpdateStatus(f.ctx, task.ID, bob.ID, "blocked")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	updated, err := f.tasks.UpdateStatus(f.ctx, task.ID, bob.ID, models.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, updated.Status)

	ownerInbox := f.inbox(t, owner.ID, models.NotifyTask)
	require.Len(t, ownerInbox, 1)
	assert.Equal(t, "Review is now in_progress", ownerInbox[0].Body)
	assert.Len(t, f.inbox(t, alice.ID, models.NotifyTask), 2)
	assert.Empty(t, f.inbox(t, bob.ID, models.NotifyTask))

	_, err = f.tasks.UpdateStatus(f.ctx, "missing", bob.ID, models.TaskDone)
	assert.True(t, apperr.Is(err, apperr.TaskNotFound))
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	owner, alice, bob := f.user(t, "owner"), f.user(t, "alice"), f.user(t, "bob")
	team := f.team(t, owner, alice, bob)
	task, err := f.tasks.Create(f.ctx, alice.ID, services.NewTask{TeamID: team.ID, Title: "Mine"})
	require.NoError(t, err)

	assert.True(t, apperr.Is(f.tasks.Delete(f.ctx, task.ID, bob.ID), apperr.InsufficientRole))
	require.NoError(t, f.tasks.Delete(f.ctx, task.ID, owner.ID))
	assert.True(t, apperr.Is(f.tasks.Delete(f.ctx, task.ID, owner.ID), apperr.TaskNotFound))

	events := f.bus.named(models.EventTaskDeleted)
	require.Len(t, events, 1)
	assert.Equal(t, models.TaskDeleted{TaskID: task.ID, TeamID: team.ID}, events[0].payload)
}
