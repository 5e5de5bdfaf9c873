package tools

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/hibari-ai/hibari/internal/fault"
)

// Tool names exposed through the protocol endpoint.
const (
	ToolAddTask      = "add_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolDeleteTask   = "delete_task"
	ToolUpdateTask   = "update_task"
)

// Registry maps tool names to handlers and publishes their schemas.
// It is constructed once at startup and immutable afterward; dispatch
// performs no business validation, only name resolution and argument
// shaping.
type Registry struct {
	handler *Handler
	tools   []mcplib.Tool
}

// NewRegistry builds the registry over a Handler.
func NewRegistry(h *Handler) *Registry {
	return &Registry{
		handler: h,
		tools: []mcplib.Tool{
			mcplib.NewTool(ToolAddTask,
				mcplib.WithDescription("Create a new task for the user"),
				mcplib.WithString("user_id", mcplib.Description("The user's unique identifier"), mcplib.Required()),
				mcplib.WithString("title", mcplib.Description("Task title (1-500 characters)"), mcplib.Required()),
				mcplib.WithString("description", mcplib.Description("Optional task description")),
			),
			mcplib.NewTool(ToolListTasks,
				mcplib.WithDescription("Retrieve user's tasks with optional status filter"),
				mcplib.WithString("user_id", mcplib.Description("The user's unique identifier"), mcplib.Required()),
				mcplib.WithString("status", mcplib.Description("Filter by task status: all, pending, or completed (default: all)")),
			),
			mcplib.NewTool(ToolCompleteTask,
				mcplib.WithDescription("Mark a task as completed"),
				mcplib.WithString("user_id", mcplib.Description("The user's unique identifier"), mcplib.Required()),
				mcplib.WithNumber("task_id", mcplib.Description("The task's unique identifier"), mcplib.Required()),
			),
			mcplib.NewTool(ToolDeleteTask,
				mcplib.WithDescription("Permanently remove a task"),
				mcplib.WithString("user_id", mcplib.Description("The user's unique identifier"), mcplib.Required()),
				mcplib.WithNumber("task_id", mcplib.Description("The task's unique identifier"), mcplib.Required()),
			),
			mcplib.NewTool(ToolUpdateTask,
				mcplib.WithDescription("Update task title or description"),
				mcplib.WithString("user_id", mcplib.Description("The user's unique identifier"), mcplib.Required()),
				mcplib.WithNumber("task_id", mcplib.Description("The task's unique identifier"), mcplib.Required()),
				mcplib.WithString("title", mcplib.Description("New task title (optional)")),
				mcplib.WithString("description", mcplib.Description("New task description (optional)")),
			),
		},
	}
}

// Tools returns the published schemas in registration order.
func (r *Registry) Tools() []mcplib.Tool {
	out := make([]mcplib.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Dispatch resolves a tool name and invokes its handler with arguments
// decoded from the wire mapping. Handler successes and faults propagate
// unchanged; the only faults raised here are UnknownTool and the
// ValidationError for malformed required arguments.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	if !r.knownTool(name) {
		return nil, fault.New(fault.UnknownTool, "unknown tool: %s", name)
	}

	// user_id is required by every tool; reject before the switch so the
	// error shape is uniform.
	userID, ok := strArg(args, "user_id")
	if !ok {
		return nil, fault.New(fault.ValidationError, "%s: user_id is required", name)
	}

	switch name {
	case ToolAddTask:
		title, ok := strArg(args, "title")
		if !ok {
			return nil, fault.New(fault.ValidationError, "add_task: title is required")
		}
		return r.handler.Create(ctx, CreateArgs{
			UserID:      userID,
			Title:       title,
			Description: optStrArg(args, "description"),
		})

	case ToolListTasks:
		status, _ := strArg(args, "status")
		return r.handler.List(ctx, ListArgs{UserID: userID, Status: status})

	case ToolCompleteTask:
		taskID, ok := intArg(args, "task_id")
		if !ok {
			return nil, fault.New(fault.ValidationError, "complete_task: task_id is required")
		}
		return r.handler.Complete(ctx, CompleteArgs{UserID: userID, TaskID: taskID})

	case ToolDeleteTask:
		taskID, ok := intArg(args, "task_id")
		if !ok {
			return nil, fault.New(fault.ValidationError, "delete_task: task_id is required")
		}
		return r.handler.Delete(ctx, DeleteArgs{UserID: userID, TaskID: taskID})

	case ToolUpdateTask:
		taskID, ok := intArg(args, "task_id")
		if !ok {
			return nil, fault.New(fault.ValidationError, "update_task: task_id is required")
		}
		return r.handler.Update(ctx, UpdateArgs{
			UserID:      userID,
			TaskID:      taskID,
			Title:       optStrArg(args, "title"),
			Description: optStrArg(args, "description"),
		})

	default:
		return nil, fault.New(fault.UnknownTool, "unknown tool: %s", name)
	}
}

func (r *Registry) knownTool(name string) bool {
	for _, t := range r.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// strArg extracts a required string argument.
func strArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// optStrArg extracts an optional string argument, nil when absent.
func optStrArg(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// intArg extracts an integer argument, tolerating the numeric types JSON
// decoding produces.
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
