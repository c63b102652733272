package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/apperr"
	"collab-service/internal/clock"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// NewTask is the input to task creation.
type NewTask struct {
	TeamID      string     `validate:"required"`
	Title       string     `validate:"required,max=200"`
	Description string     `validate:"max=5000"`
	AssigneeIDs []string   `validate:"dive,required"`
	DueDate     *time.Time
}

// TaskService manages team tasks.
type TaskService struct {
	tasks    repositories.TaskRepository
	resolver *access.Resolver
	notifier *NotificationService
	pub      publisher
	clock    clock.Clock
	log      *zap.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(tasks repositories.TaskRepository, resolver *access.Resolver, notifier *NotificationService,
	broadcaster Broadcaster, clk clock.Clock, logger *zap.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		resolver: resolver,
		notifier: notifier,
		pub:      publisher{b: broadcaster, log: logger},
		clock:    clk,
		log:      logger,
	}
}

func checkAssignees(team models.Team, ids []string) error {
	for _, id := range ids {
		if !access.IsTeamMember(team, id) {
			return apperr.New(apperr.NotTeamMember, "assignee is not a member of this team")
		}
	}
	return nil
}

// Create adds a task and notifies its assignees.
func (s *TaskService) Create(ctx context.Context, requesterID string, in NewTask) (models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Task{}, err
	}
	scope, err := s.resolver.Team(ctx, in.TeamID, requesterID, access.RequireTeamMember)
	if err != nil {
		return models.Task{}, err
	}
	assignees := without(in.AssigneeIDs, "")
	if err := checkAssignees(scope.Team, assignees); err != nil {
		return models.Task{}, err
	}
	task, err := s.tasks.CreateTask(ctx, models.Task{
		TeamID:      in.TeamID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskTodo,
		CreatorID:   requesterID,
		AssigneeIDs: assignees,
		DueDate:     in.DueDate,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return models.Task{}, classify("create task", err)
	}
	s.notifyAssigned(ctx, task, assignees, requesterID)
	s.pub.publish(models.TeamTopic(task.TeamID), models.EventTaskCreated, task)
	return task, nil
}

// ListForTeam returns the team's tasks.
func (s *TaskService) ListForTeam(ctx context.Context, teamID, requesterID string) ([]models.Task, error) {
	if _, err := s.resolver.Team(ctx, teamID, requesterID, access.RequireTeamMember); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTasksForTeam(ctx, teamID)
	return tasks, classify("list tasks", err)
}

func (s *TaskService) load(ctx context.Context, taskID, requesterID string) (models.Task, access.Scope, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, access.Scope{}, classify("load task", err)
	}
	scope, err := s.resolver.Team(ctx, task.TeamID, requesterID, access.RequireTeamMember)
	if err != nil {
		return models.Task{}, access.Scope{}, err
	}
	return task, scope, nil
}

// Update edits a task. Allowed for its creator and for owners and admins.
// Newly added assignees are notified.
func (s *TaskService) Update(ctx context.Context, taskID, requesterID string, patch models.TaskPatch) (models.Task, error) {
	task, scope, err := s.load(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if task.CreatorID != requesterID && !access.CanAdminister(scope.Team, requesterID) {
		return models.Task{}, apperr.New(apperr.InsufficientRole, "only the creator or an admin can edit this task")
	}

	previous := task.AssigneeIDs
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Task{}, apperr.New(apperr.InvalidInput, "title must not be empty")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.AssigneeIDs != nil {
		assignees := without(*patch.AssigneeIDs, "")
		if err := checkAssignees(scope.Team, assignees); err != nil {
			return models.Task{}, err
		}
		task.AssigneeIDs = assignees
	}
	task.UpdatedAt = s.clock.Now()

	saved, err := s.tasks.SaveTask(ctx, task)
	if err != nil {
		return models.Task{}, classify("update task", err)
	}
	var added []string
	for _, id := range saved.AssigneeIDs {
		if !containsID(previous, id) {
			added = append(added, id)
		}
	}
	s.notifyAssigned(ctx, saved, added, requesterID)
	s.pub.publish(models.TeamTopic(saved.TeamID), models.EventTaskUpdated, saved)
	return saved, nil
}

// UpdateStatus moves a task through its workflow. Any team member may do so;
// the creator and assignees are notified.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID, requesterID string, status models.TaskStatus) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, apperr.New(apperr.InvalidInput, "status must be todo, in_progress or done")
	}
	task, _, err := s.load(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	task.Status = status
	task.UpdatedAt = s.clock.Now()
	saved, err := s.tasks.SaveTask(ctx, task)
	if err != nil {
		return models.Task{}, classify("update task status", err)
	}

	related := saved.ID
	audience := without(append([]string{saved.CreatorID}, saved.AssigneeIDs...), requesterID)
	s.notifier.Notify(ctx, audience, models.Notification{
		Type:      models.NotifyTask,
		Title:     "Task status changed",
		Body:      Excerpt(saved.Title, excerptLength) + " is now " + string(status),
		RelatedID: &related,
	})
	s.pub.publish(models.TeamTopic(saved.TeamID), models.EventTaskUpdated, saved)
	return saved, nil
}

// Delete removes a task. Allowed for its creator and for owners and admins.
func (s *TaskService) Delete(ctx context.Context, taskID, requesterID string) error {
	task, scope, err := s.load(ctx, taskID, requesterID)
	if err != nil {
		return err
	}
	if task.CreatorID != requesterID && !access.CanAdminister(scope.Team, requesterID) {
		return apperr.New(apperr.InsufficientRole, "only the creator or an admin can delete this task")
	}
	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		return classify("delete task", err)
	}
	s.pub.publish(models.TeamTopic(task.TeamID), models.EventTaskDeleted, models.TaskDeleted{TaskID: taskID, TeamID: task.TeamID})
	return nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, task models.Task, assignees []string, actorID string) {
	related := task.ID
	s.notifier.Notify(ctx, without(assignees, actorID), models.Notification{
		Type:      models.NotifyTask,
		Title:     "New task assigned",
		Body:      Excerpt(task.Title, excerptLength),
		RelatedID: &related,
	})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
