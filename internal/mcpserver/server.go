package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/sadopc/pomo/internal/store"
)

// NewServer creates an MCP server exposing the pomodoro tools for userID.
func NewServer(repo store.Repository, userID, version string) *server.MCPServer {
	h := NewHandlers(repo, userID)

	s := server.NewMCPServer(
		"pomo",
		version,
		server.WithToolCapabilities(true),
	)

	// Settings
	s.AddTool(getSettingsTool(), h.HandleGetSettings)
	s.AddTool(updateSettingsTool(), h.HandleUpdateSettings)

	// Tasks
	s.AddTool(listTasksTool(), h.HandleListTasks)
	s.AddTool(addTaskTool(), h.HandleAddTask)
	s.AddTool(setActiveTaskTool(), h.HandleSetActiveTask)
	s.AddTool(completeTaskTool(), h.HandleCompleteTask)
	s.AddTool(deleteTaskTool(), h.HandleDeleteTask)

	// Sessions
	s.AddTool(listSessionsTool(), h.HandleListSessions)
	s.AddTool(recordSessionTool(), h.HandleRecordSession)

	return s
}
