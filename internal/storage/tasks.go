package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hibari-ai/hibari/internal/model"
)

// CreateTask inserts a new task and returns it with store-assigned fields.
// Title is expected to be validated and trimmed by the caller.
func (db *DB) CreateTask(ctx context.Context, userID, title string, description *string) (model.Task, error) {
	task := model.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		userID, title, description,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: create task: %w", err)
	}
	return task, nil
}

// ListTasks returns the owner's tasks matching the filter, newest-created
// first. Zero matches yields an empty slice, not an error.
func (db *DB) ListTasks(ctx context.Context, userID string, filter model.StatusFilter) ([]model.Task, error) {
	query := `SELECT id, user_id, title, description, completed, created_at, updated_at
	          FROM tasks WHERE user_id = $1`
	switch filter {
	case model.StatusPending:
		query += ` AND completed = false`
	case model.StatusCompleted:
		query += ` AND completed = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask sets the completion flag on a task owned by userID.
// The UPDATE itself guards the completion flag, so under concurrent calls
// exactly one caller wins; the loser sees ErrAlreadyCompleted.
func (db *DB) CompleteTask(ctx context.Context, userID string, id int64) (model.Task, error) {
	var task model.Task
	err := db.pool.QueryRow(ctx,
		`UPDATE tasks SET completed = true, updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND completed = false
		 RETURNING id, user_id, title, description, completed, created_at, updated_at`,
		id, userID,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, fmt.Errorf("storage: complete task: %w", err)
	}

	// No row updated: distinguish missing from already-completed.
	var completed bool
	err = db.pool.QueryRow(ctx,
		`SELECT completed FROM tasks WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: complete task lookup: %w", err)
	}
	return model.Task{}, ErrAlreadyCompleted
}

// DeleteTask permanently removes a task owned by userID and returns the
// removed row. Deletion is irreversible; there is no soft delete.
func (db *DB) DeleteTask(ctx context.Context, userID string, id int64) (model.Task, error) {
	var task model.Task
	err := db.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, description, completed, created_at, updated_at`,
		id, userID,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: delete task: %w", err)
	}
	return task, nil
}

// UpdateTask applies only the provided fields to a task owned by userID.
// Nil fields are left untouched. At least one field must be non-nil.
func (db *DB) UpdateTask(ctx context.Context, userID string, id int64, title, description *string) (model.Task, error) {
	set := []string{"updated_at = now()"}
	args := []any{id, userID}
	if title != nil {
		args = append(args, *title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}

	var task model.Task
	err := db.pool.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(set, ", ")+`
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, description, completed, created_at, updated_at`,
		args...,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: update task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a single task by (id, user_id).
func (db *DB) GetTask(ctx context.Context, userID string, id int64) (model.Task, error) {
	var task model.Task
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, description, completed, created_at, updated_at
		 FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}
	return task, nil
}
