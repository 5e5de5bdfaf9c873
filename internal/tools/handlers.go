// Package tools implements the five task-management tools and the registry
// that exposes them to the protocol endpoint.
//
// Each handler is a pure function of (owner, typed arguments) over the
// storage layer: it validates input, enforces owner isolation through
// compound (id, user_id) filtering, and returns a typed result or a
// *fault.Fault. Handlers hold no state between calls.
package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/storage"
)

// Handler executes tool operations against the storage layer.
type Handler struct {
	db *storage.DB
}

// NewHandler creates a Handler.
func NewHandler(db *storage.DB) *Handler {
	return &Handler{db: db}
}

// CreateArgs are the arguments for add_task.
type CreateArgs struct {
	UserID      string
	Title       string
	Description *string
}

// ListArgs are the arguments for list_tasks.
type ListArgs struct {
	UserID string
	Status string // "all" (default), "pending", or "completed"
}

// CompleteArgs are the arguments for complete_task.
type CompleteArgs struct {
	UserID string
	TaskID int64
}

// DeleteArgs are the arguments for delete_task.
type DeleteArgs struct {
	UserID string
	TaskID int64
}

// UpdateArgs are the arguments for update_task. Nil optional fields are
// never applied: an absent field must not overwrite an existing value.
type UpdateArgs struct {
	UserID      string
	TaskID      int64
	Title       *string
	Description *string
}

// ActionResult is the common result shape of the mutating tools.
type ActionResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

// TaskSummary is one row in a list_tasks result.
type TaskSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListResult is the result of list_tasks.
type ListResult struct {
	Tasks []TaskSummary `json:"tasks"`
	Count int           `json:"count"`
}

// Create inserts a new task with completion unset.
func (h *Handler) Create(ctx context.Context, args CreateArgs) (ActionResult, error) {
	title, err := model.ValidateTitle(args.Title)
	if err != nil {
		return ActionResult{}, fault.New(fault.InvalidTitle, "%v", err)
	}

	var description *string
	if args.Description != nil {
		trimmed := strings.TrimSpace(*args.Description)
		if trimmed != "" {
			description = &trimmed
		}
	}

	task, err := h.db.CreateTask(ctx, args.UserID, title, description)
	if err != nil {
		return ActionResult{}, fault.Wrap(fault.DatabaseError, err, "create task")
	}
	return ActionResult{ID: task.ID, Status: "created", Title: task.Title}, nil
}

// List returns the owner's tasks matching the status filter, newest first.
func (h *Handler) List(ctx context.Context, args ListArgs) (ListResult, error) {
	filter, err := model.ParseStatusFilter(args.Status)
	if err != nil {
		return ListResult{}, fault.New(fault.ValidationError, "%v", err)
	}

	tasks, err := h.db.ListTasks(ctx, args.UserID, filter)
	if err != nil {
		return ListResult{}, fault.Wrap(fault.DatabaseError, err, "list tasks")
	}

	result := ListResult{Tasks: make([]TaskSummary, 0, len(tasks)), Count: len(tasks)}
	for _, t := range tasks {
		result.Tasks = append(result.Tasks, TaskSummary{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
		})
	}
	return result, nil
}

// Complete marks a task as completed. Not idempotent: completing an
// already-completed task fails with AlreadyCompleted.
func (h *Handler) Complete(ctx context.Context, args CompleteArgs) (ActionResult, error) {
	task, err := h.db.CompleteTask(ctx, args.UserID, args.TaskID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ActionResult{}, fault.New(fault.TaskNotFound, "task %d not found", args.TaskID)
	case errors.Is(err, storage.ErrAlreadyCompleted):
		return ActionResult{}, fault.New(fault.AlreadyCompleted, "task %d is already completed", args.TaskID)
	case err != nil:
		return ActionResult{}, fault.Wrap(fault.DatabaseError, err, "complete task")
	}
	return ActionResult{ID: task.ID, Status: "completed", Title: task.Title}, nil
}

// Delete permanently removes a task, returning the title it had.
func (h *Handler) Delete(ctx context.Context, args DeleteArgs) (ActionResult, error) {
	task, err := h.db.DeleteTask(ctx, args.UserID, args.TaskID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ActionResult{}, fault.New(fault.TaskNotFound, "task %d not found", args.TaskID)
	case err != nil:
		return ActionResult{}, fault.Wrap(fault.DatabaseError, err, "delete task")
	}
	return ActionResult{ID: task.ID, Status: "deleted", Title: task.Title}, nil
}

// Update applies only the provided fields to a task.
func (h *Handler) Update(ctx context.Context, args UpdateArgs) (ActionResult, error) {
	if args.Title == nil && args.Description == nil {
		return ActionResult{}, fault.New(fault.NoChanges, "no changes provided")
	}

	var title *string
	if args.Title != nil {
		validated, err := model.ValidateTitle(*args.Title)
		if err != nil {
			return ActionResult{}, fault.New(fault.InvalidTitle, "%v", err)
		}
		title = &validated
	}

	var description *string
	if args.Description != nil {
		trimmed := strings.TrimSpace(*args.Description)
		description = &trimmed
	}

	task, err := h.db.UpdateTask(ctx, args.UserID, args.TaskID, title, description)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ActionResult{}, fault.New(fault.TaskNotFound, "task %d not found", args.TaskID)
	case err != nil:
		return ActionResult{}, fault.Wrap(fault.DatabaseError, err, "update task")
	}
	return ActionResult{ID: task.ID, Status: "updated", Title: task.Title}, nil
}
