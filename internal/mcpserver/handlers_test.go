package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sadopc/pomo/internal/store"
)

// ===========================================================================
// Helpers
// ===========================================================================

func newTestHandlers(t *testing.T) (*Handlers, store.Repository) {
	t.Helper()
	repo, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewHandlers(repo, "user-1"), repo
}

func makeRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the text of the first content element.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no Content elements")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("result.Content[0] is %T, want mcp.TextContent", result.Content[0])
	}
	return tc.Text
}

type handlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// call runs h and fails on protocol-level errors.
func call(t *testing.T, h handlerFunc, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := h(context.Background(), makeRequest(name, args))
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	return result
}

func assertOK(t *testing.T, result *mcp.CallToolResult, substr string) {
	t.Helper()
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("IsError = true, text = %q", text)
	}
	if !strings.Contains(text, substr) {
		t.Errorf("result text = %q, want it to contain %q", text, substr)
	}
}

func assertToolError(t *testing.T, result *mcp.CallToolResult, substr string) {
	t.Helper()
	text := resultText(t, result)
	if !result.IsError {
		t.Fatalf("IsError = false, text = %q", text)
	}
	if !strings.Contains(text, substr) {
		t.Errorf("error text = %q, want it to contain %q", text, substr)
	}
}

// ===========================================================================
// Settings
// ===========================================================================

func TestSettingsTools(t *testing.T) {
	h, repo := newTestHandlers(t)

	assertOK(t, call(t, h.HandleGetSettings, "get_settings", nil), "Work: 25 min")

	result := call(t, h.HandleUpdateSettings, "update_settings", map[string]any{"work_duration": float64(50)})
	assertOK(t, result, "Work: 50 min")

	s, _ := repo.GetSettings(context.Background(), "user-1")
	if s.WorkDuration != 50 || s.ShortBreakDuration != 5 {
		t.Fatalf("unexpected stored settings %+v", s)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"zero work", map[string]any{"work_duration": float64(0)}, "workDuration"},
		{"fractional", map[string]any{"long_break_duration": 2.5}, "whole number"},
		{"work over a day", map[string]any{"work_duration": float64(1441)}, "at most"},
		{"wrong type", map[string]any{"sessions_before_long_break": "four"}, "whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t)
			assertToolError(t, call(t, h.HandleUpdateSettings, "update_settings", tt.args), tt.want)
		})
	}
}

// ===========================================================================
// Tasks
// ===========================================================================

func TestTaskTools(t *testing.T) {
	h, repo := newTestHandlers(t)
	ctx := context.Background()

	assertOK(t, call(t, h.HandleListTasks, "list_tasks", nil), "No tasks.")
	assertOK(t, call(t, h.HandleAddTask, "add_task", map[string]any{"name": "  write  ", "estimated_pomodoros": float64(3)}), "write (0/3)")

	tasks, _ := repo.ListTasks(ctx, "user-1")
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	id := float64(tasks[0].ID)

	assertOK(t, call(t, h.HandleSetActiveTask, "set_active_task", map[string]any{"task_id": id}), "[active]")
	assertOK(t, call(t, h.HandleCompleteTask, "complete_task", map[string]any{"task_id": id}), "active, completed")
	assertOK(t, call(t, h.HandleListTasks, "list_tasks", nil), "write")
	assertOK(t, call(t, h.HandleDeleteTask, "delete_task", map[string]any{"task_id": id}), "Deleted task")
	assertToolError(t, call(t, h.HandleDeleteTask, "delete_task", map[string]any{"task_id": id}), "Not found")
}

func TestAddTaskValidation(t *testing.T) {
	h, _ := newTestHandlers(t)
	assertToolError(t, call(t, h.HandleAddTask, "add_task", nil), "name")
	assertToolError(t, call(t, h.HandleAddTask, "add_task", map[string]any{"name": "   "}), "empty")
	assertToolError(t, call(t, h.HandleAddTask, "add_task", map[string]any{"name": "x", "estimated_pomodoros": float64(0)}), "at least 1")
	assertToolError(t, call(t, h.HandleAddTask, "add_task", map[string]any{"name": strings.Repeat("x", 201)}), "at most 200")
}

func TestTaskToolsRejectOtherUsersTasks(t *testing.T) {
	h, repo := newTestHandlers(t)
	other, err := repo.CreateTask(context.Background(), store.Task{UserID: "someone-else", Name: "theirs", EstimatedPomodoros: 1})
	if err != nil {
		t.Fatal(err)
	}
	args := map[string]any{"task_id": float64(other.ID)}
	assertToolError(t, call(t, h.HandleCompleteTask, "complete_task", args), "Not found")
	assertToolError(t, call(t, h.HandleSetActiveTask, "set_active_task", args), "Not found")
	assertToolError(t, call(t, h.HandleDeleteTask, "delete_task", args), "Not found")
}

// ===========================================================================
// Sessions
// ===========================================================================

func TestSessionTools(t *testing.T) {
	h, repo := newTestHandlers(t)
	task, _ := repo.CreateTask(context.Background(), store.Task{UserID: "user-1", Name: "focus", EstimatedPomodoros: 1})

	assertOK(t, call(t, h.HandleListSessions, "list_sessions", nil), "No sessions")
	assertOK(t, call(t, h.HandleRecordSession, "record_session", map[string]any{
		"mode": "work", "duration": float64(25), "task_id": float64(task.ID),
	}), "work 25 min")
	assertOK(t, call(t, h.HandleRecordSession, "record_session", map[string]any{
		"mode": "shortBreak", "duration": float64(5),
	}), "shortBreak 5 min")

	result := call(t, h.HandleListSessions, "list_sessions", map[string]any{"limit": float64(10)})
	assertOK(t, result, "work 25 min - focus")
}

func TestRecordSessionValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing mode", map[string]any{"duration": float64(25)}, "mode"},
		{"bad mode", map[string]any{"mode": "nap", "duration": float64(25)}, "mode"},
		{"zero duration", map[string]any{"mode": "work", "duration": float64(0)}, "between 1 and"},
		{"duration over a day", map[string]any{"mode": "work", "duration": float64(1441)}, "between 1 and"},
		{"unknown task", map[string]any{"mode": "work", "duration": float64(25), "task_id": float64(999)}, "Not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t)
			assertToolError(t, call(t, h.HandleRecordSession, "record_session", tt.args), tt.want)
		})
	}
}

func TestListSessionsLimit(t *testing.T) {
	h, _ := newTestHandlers(t)
	assertToolError(t, call(t, h.HandleListSessions, "list_sessions", map[string]any{"limit": float64(51)}), "between 1 and 50")
}

// ===========================================================================
// Server
// ===========================================================================

func TestNewServerRegistersTools(t *testing.T) {
	repo, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	s := NewServer(repo, "user-1", "test")
	want := []string{
		"get_settings", "update_settings", "list_tasks", "add_task", "set_active_task",
		"complete_task", "delete_task", "list_sessions", "record_session",
	}
	tools := s.ListTools()
	for _, name := range want {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}
