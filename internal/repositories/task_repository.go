package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// TaskRepository persists team tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	GetTask(ctx context.Context, taskID string) (models.Task, error)
	ListTasksForTeam(ctx context.Context, teamID string) ([]models.Task, error)
	SaveTask(ctx context.Context, task models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// TaskRepo is a sqlx implementation of TaskRepository.
type TaskRepo struct {
	db *sqlx.DB
}

// NewTaskRepo constructs a TaskRepo.
func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, team_id, title, description, status, creator_id, due_date, created_at, updated_at`

// CreateTask inserts a task and its assignees.
func (r *TaskRepo) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	if task.ID == "" {
		task.ID = NewID()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Task{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (id, team_id, title, description, status, creator_id, due_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		task.ID, task.TeamID, task.Title, task.Description, task.Status, task.CreatorID, task.DueDate, task.CreatedAt); err != nil {
		return models.Task{}, err
	}
	if err := replaceAssignees(ctx, tx, task.ID, task.AssigneeIDs); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, err
	}
	return r.GetTask(ctx, task.ID)
}

// GetTask fetches a task with its assignees.
func (r *TaskRepo) GetTask(ctx context.Context, taskID string) (models.Task, error) {
	var task models.Task
	if err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, taskID); err != nil {
		return models.Task{}, notFound(err, ErrTaskNotFound)
	}
	tasks := []models.Task{task}
	if err := r.hydrate(ctx, tasks); err != nil {
		return models.Task{}, err
	}
	return tasks[0], nil
}

// ListTasksForTeam returns the team's tasks, oldest first.
func (r *TaskRepo) ListTasksForTeam(ctx context.Context, teamID string) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks WHERE team_id=$1 ORDER BY created_at ASC, id ASC`, teamID); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTask overwrites the mutable fields and the assignee set.
func (r *TaskRepo) SaveTask(ctx context.Context, task models.Task) (models.Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Task{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=$2, description=$3, status=$4, due_date=$5, updated_at=$6 WHERE id=$1`,
		task.ID, task.Title, task.Description, task.Status, task.DueDate, task.UpdatedAt)
	if err != nil {
		return models.Task{}, notFound(err, ErrTaskNotFound)
	}
	if err := rowsAffected(res, ErrTaskNotFound); err != nil {
		return models.Task{}, err
	}
	if err := replaceAssignees(ctx, tx, task.ID, task.AssigneeIDs); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, err
	}
	return r.GetTask(ctx, task.ID)
}

// DeleteTask removes a task.
func (r *TaskRepo) DeleteTask(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return notFound(err, ErrTaskNotFound)
	}
	return rowsAffected(res, ErrTaskNotFound)
}

func replaceAssignees(ctx context.Context, tx *sqlx.Tx, taskID string, assigneeIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id=$1`, taskID); err != nil {
		return err
	}
	for i, userID := range assigneeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_assignees (task_id, user_id, position) VALUES ($1, $2, $3)
            ON CONFLICT DO NOTHING`, taskID, userID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepo) hydrate(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
		tasks[i].AssigneeIDs = []string{}
	}
	var rows []struct {
		TaskID string `db:"task_id"`
		UserID string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT task_id, user_id FROM task_assignees
        WHERE task_id = ANY($1::uuid[]) ORDER BY position ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.TaskID]
		tasks[i].AssigneeIDs = append(tasks[i].AssigneeIDs, row.UserID)
	}
	return nil
}
