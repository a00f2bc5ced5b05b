package main

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// taskTools is the project tracker tool group. Each handler opens the store
// for the duration of one call; SQLite serializes concurrent writers, and a
// short-lived handle keeps the file closed between invocations. Unlike the
// Baserow handlers, errors here are returned to the dispatcher, which wraps
// them into error results.
func taskTools(cfg *Config) []server.ServerTool {
	withStore := func(fn func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error)) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			store, err := OpenTaskStore(cfg.DBPath)
			if err != nil {
				return nil, err
			}
			defer store.Close()
			return fn(ctx, req, store)
		}
	}

	return []server.ServerTool{
		{
			Tool: mcp.NewTool("create_task",
				mcp.WithDescription("Create a new task in the project tracker"),
				mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
				mcp.WithString("description", mcp.Description("Task description")),
				mcp.WithString("priority", mcp.Description("Task priority"),
					mcp.Enum("low", "medium", "high", "urgent")),
				mcp.WithString("category", mcp.Description("Task category")),
				mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
				mcp.WithNumber("estimated_hours", mcp.Description("Estimated hours")),
				mcp.WithNumber("milestone_id", mcp.Description("Milestone to link the task to")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				title, err := req.RequireString("title")
				if err != nil {
					return nil, err
				}
				taskID, err := store.CreateTask(
					title,
					optionalString(req, "description"),
					req.GetString("priority", "medium"),
					optionalString(req, "category"),
					optionalString(req, "due_date"),
					optionalFloat(req, "estimated_hours"),
					optionalInt64(req, "milestone_id"),
				)
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{
					"success": true,
					"taskId":  taskID,
					"message": "Task created successfully",
				})
			}),
		},
		{
			Tool: mcp.NewTool("list_tasks",
				mcp.WithDescription("List tasks with optional filtering"),
				mcp.WithString("status", mcp.Description("Filter by status"),
					mcp.Enum("pending", "in_progress", "completed", "on_hold")),
				mcp.WithString("priority", mcp.Description("Filter by priority"),
					mcp.Enum("low", "medium", "high", "urgent")),
				mcp.WithString("category", mcp.Description("Filter by category")),
				mcp.WithNumber("milestone_id", mcp.Description("Filter by milestone")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				tasks, err := store.ListTasks(
					optionalString(req, "status"),
					optionalString(req, "priority"),
					optionalString(req, "category"),
					optionalInt64(req, "milestone_id"),
				)
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{"tasks": tasks})
			}),
		},
		{
			Tool: mcp.NewTool("update_task",
				mcp.WithDescription("Update an existing task"),
				mcp.WithNumber("id", mcp.Required(), mcp.Description("Task ID")),
				mcp.WithString("title", mcp.Description("New title")),
				mcp.WithString("description", mcp.Description("New description")),
				mcp.WithString("status", mcp.Description("New status"),
					mcp.Enum("pending", "in_progress", "completed", "on_hold")),
				mcp.WithString("priority", mcp.Description("New priority"),
					mcp.Enum("low", "medium", "high", "urgent")),
				mcp.WithNumber("progress", mcp.Description("Progress percentage (0-100)")),
				mcp.WithNumber("actual_hours", mcp.Description("Actual hours spent")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				taskID, err := req.RequireFloat("id")
				if err != nil {
					return nil, err
				}

				title := optionalString(req, "title")
				description := optionalString(req, "description")
				status := optionalString(req, "status")
				priority := optionalString(req, "priority")
				progress := optionalInt64(req, "progress")
				actualHours := optionalFloat(req, "actual_hours")

				if title == nil && description == nil && status == nil && priority == nil && progress == nil && actualHours == nil {
					return jsonToolResult(map[string]interface{}{
						"success": false,
						"message": "No fields to update",
					})
				}

				updated, err := store.UpdateTask(int64(taskID), title, description, status, priority, progress, actualHours)
				if err != nil {
					return nil, err
				}
				message := "Task updated successfully"
				if !updated {
					message = "Task not found"
				}
				return jsonToolResult(map[string]interface{}{
					"success": updated,
					"message": message,
				})
			}),
		},
		{
			Tool: mcp.NewTool("create_milestone",
				mcp.WithDescription("Create a new milestone"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Milestone name")),
				mcp.WithString("description", mcp.Description("Milestone description")),
				mcp.WithString("target_date", mcp.Description("Target date (YYYY-MM-DD)")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				name, err := req.RequireString("name")
				if err != nil {
					return nil, err
				}
				milestoneID, err := store.CreateMilestone(
					name,
					optionalString(req, "description"),
					optionalString(req, "target_date"),
				)
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{
					"success":     true,
					"milestoneId": milestoneID,
					"message":     "Milestone created successfully",
				})
			}),
		},
		{
			Tool: mcp.NewTool("list_milestones",
				mcp.WithDescription("List all milestones with task completion counts"),
				mcp.WithString("status", mcp.Description("Filter by status"),
					mcp.Enum("active", "completed", "delayed")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				milestones, err := store.ListMilestones(optionalString(req, "status"))
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{"milestones": milestones})
			}),
		},
		{
			Tool: mcp.NewTool("add_note",
				mcp.WithDescription("Add a note to a task or milestone"),
				mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
				mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
				mcp.WithString("category", mcp.Description("Note category")),
				mcp.WithNumber("task_id", mcp.Description("Associated task ID")),
				mcp.WithNumber("milestone_id", mcp.Description("Associated milestone ID")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				title, err := req.RequireString("title")
				if err != nil {
					return nil, err
				}
				content, err := req.RequireString("content")
				if err != nil {
					return nil, err
				}
				noteID, err := store.AddNote(title, content,
					optionalString(req, "category"),
					optionalInt64(req, "task_id"),
					optionalInt64(req, "milestone_id"),
				)
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{
					"success": true,
					"noteId":  noteID,
					"message": "Note added successfully",
				})
			}),
		},
		{
			Tool: mcp.NewTool("log_time",
				mcp.WithDescription("Log time spent on a task"),
				mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
				mcp.WithNumber("hours", mcp.Required(), mcp.Description("Hours spent")),
				mcp.WithString("log_date", mcp.Required(), mcp.Description("Date (YYYY-MM-DD)")),
				mcp.WithString("description", mcp.Description("Work description")),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				taskID, err := req.RequireFloat("task_id")
				if err != nil {
					return nil, err
				}
				hours, err := req.RequireFloat("hours")
				if err != nil {
					return nil, err
				}
				logDate, err := req.RequireString("log_date")
				if err != nil {
					return nil, err
				}
				logID, err := store.LogTime(int64(taskID), hours, optionalString(req, "description"), logDate)
				if err != nil {
					return nil, err
				}
				return jsonToolResult(map[string]interface{}{
					"success": true,
					"logId":   logID,
					"message": "Time logged successfully",
				})
			}),
		},
		{
			Tool: mcp.NewTool("get_project_status",
				mcp.WithDescription("Get overall project status and metrics"),
			),
			Handler: withStore(func(ctx context.Context, req mcp.CallToolRequest, store *TaskStore) (*mcp.CallToolResult, error) {
				status, err := store.ProjectStatus()
				if err != nil {
					return nil, err
				}
				return jsonToolResult(status)
			}),
		},
	}
}

// jsonToolResult marshals v into an indented-JSON text result.
func jsonToolResult(v interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(prettyJSON(v)), nil
}
