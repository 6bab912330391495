// Package mcpserver exposes pomodoro settings, tasks and session history as
// MCP tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func getSettingsTool() mcp.Tool {
	return mcp.NewTool("get_settings",
		mcp.WithDescription("Get the timer settings: interval lengths in minutes and work sessions before a long break."),
	)
}

func updateSettingsTool() mcp.Tool {
	return mcp.NewTool("update_settings",
		mcp.WithDescription("Update timer settings. Omitted fields keep their current value."),
		mcp.WithNumber("work_duration",
			mcp.Description("Work interval in minutes")),
		mcp.WithNumber("short_break_duration",
			mcp.Description("Short break in minutes")),
		mcp.WithNumber("long_break_duration",
			mcp.Description("Long break in minutes")),
		mcp.WithNumber("sessions_before_long_break",
			mcp.Description("Work sessions before a long break")),
	)
}

func listTasksTool() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, newest first, with pomodoro progress and the active flag."),
	)
}

func addTaskTool() mcp.Tool {
	return mcp.NewTool("add_task",
		mcp.WithDescription("Create a task."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Task name")),
		mcp.WithNumber("estimated_pomodoros",
			mcp.Description("Estimated pomodoros (defaults to 1)")),
	)
}

func setActiveTaskTool() mcp.Tool {
	return mcp.NewTool("set_active_task",
		mcp.WithDescription("Make a task the active one. Completed work sessions are credited to it."),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task id")),
	)
}

func completeTaskTool() mcp.Tool {
	return mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task completed."),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task id")),
	)
}

func deleteTaskTool() mcp.Tool {
	return mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task. Its sessions are kept without a task."),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task id")),
	)
}

func listSessionsTool() mcp.Tool {
	return mcp.NewTool("list_sessions",
		mcp.WithDescription("List recorded sessions, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (1-50, defaults to 50)")),
	)
}

func recordSessionTool() mcp.Tool {
	return mcp.NewTool("record_session",
		mcp.WithDescription("Record a completed interval."),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Enum("work", "shortBreak", "longBreak"),
			mcp.Description("Interval mode")),
		mcp.WithNumber("duration",
			mcp.Required(),
			mcp.Description("Length in minutes")),
		mcp.WithNumber("task_id",
			mcp.Description("Task to attribute the session to")),
	)
}
