package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/store"
)

// Handlers implements the tools against one user's data.
type Handlers struct {
	repo   store.Repository
	userID string
}

// NewHandlers returns tool handlers for userID.
func NewHandlers(repo store.Repository, userID string) *Handlers {
	return &Handlers{repo: repo, userID: userID}
}

func formatSettings(s store.Settings) string {
	return fmt.Sprintf("Work: %d min\nShort break: %d min\nLong break: %d min\nSessions before long break: %d",
		s.WorkDuration, s.ShortBreakDuration, s.LongBreakDuration, s.SessionsBeforeLongBreak)
}

func formatTask(t store.Task) string {
	var flags []string
	if t.IsActive {
		flags = append(flags, "active")
	}
	if t.Completed {
		flags = append(flags, "completed")
	}
	line := fmt.Sprintf("#%d %s (%d/%d)", t.ID, t.Name, t.CompletedPomodoros, t.EstimatedPomodoros)
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ", ") + "]"
	}
	return line
}

func formatSession(s store.Session) string {
	line := fmt.Sprintf("%s %s %d min", s.CompletedAt.UTC().Format(time.RFC3339), s.Mode, s.Duration)
	if s.TaskName != nil {
		line += " - " + *s.TaskName
	}
	return line
}

// toolError maps repository errors to tool results. Unexpected failures are
// returned as Go errors so the client sees a protocol-level failure.
func toolError(op string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("Not found"), nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// intArg reads an optional whole-number argument.
func intArg(request mcp.CallToolRequest, key string) (int, bool, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, true, fmt.Errorf("%s must be a whole number", key)
	}
	return int(f), true, nil
}

func (h *Handlers) HandleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.repo.GetSettings(ctx, h.userID)
	if err != nil {
		return toolError("get settings", err)
	}
	return mcp.NewToolResultText(formatSettings(s)), nil
}

func (h *Handlers) HandleUpdateSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.repo.GetSettings(ctx, h.userID)
	if err != nil {
		return toolError("get settings", err)
	}
	fields := []struct {
		key string
		dst *int
	}{
		{"work_duration", &s.WorkDuration},
		{"short_break_duration", &s.ShortBreakDuration},
		{"long_break_duration", &s.LongBreakDuration},
		{"sessions_before_long_break", &s.SessionsBeforeLongBreak},
	}
	for _, f := range fields {
		v, ok, err := intArg(request, f.key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			*f.dst = v
		}
	}
	mins := engine.SettingsMinutes{
		Work:                    s.WorkDuration,
		ShortBreak:              s.ShortBreakDuration,
		LongBreak:               s.LongBreakDuration,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
	}
	if _, err := mins.Settings(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := h.repo.SaveSettings(ctx, s)
	if err != nil {
		return toolError("save settings", err)
	}
	return mcp.NewToolResultText("Settings updated.\n" + formatSettings(saved)), nil
}

func (h *Handlers) HandleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := h.repo.ListTasks(ctx, h.userID)
	if err != nil {
		return toolError("list tasks", err)
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks."), nil
	}
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = formatTask(t)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (h *Handlers) HandleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return mcp.NewToolResultError("Task name cannot be empty"), nil
	}
	if utf8.RuneCountInString(name) > engine.MaxTaskNameLength {
		return mcp.NewToolResultError(fmt.Sprintf("Task name must be at most %d characters", engine.MaxTaskNameLength)), nil
	}
	estimate, ok, err := intArg(request, "estimated_pomodoros")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		estimate = 1
	}
	if estimate < 1 {
		return mcp.NewToolResultError("estimated_pomodoros must be at least 1"), nil
	}

	t, err := h.repo.CreateTask(ctx, store.Task{UserID: h.userID, Name: name, EstimatedPomodoros: estimate})
	if err != nil {
		return toolError("create task", err)
	}
	return mcp.NewToolResultText("Created " + formatTask(t)), nil
}

// ownedTask loads the task named by task_id and checks it belongs to the user.
func (h *Handlers) ownedTask(ctx context.Context, request mcp.CallToolRequest) (store.Task, *mcp.CallToolResult, error) {
	id, ok, err := intArg(request, "task_id")
	if err != nil {
		return store.Task{}, mcp.NewToolResultError(err.Error()), nil
	}
	if !ok || id < 1 {
		return store.Task{}, mcp.NewToolResultError("Missing required parameter: task_id"), nil
	}
	t, err := h.repo.GetTask(ctx, int64(id))
	if err == nil && t.UserID != h.userID {
		err = store.ErrNotFound
	}
	if err != nil {
		res, err := toolError("get task", err)
		return store.Task{}, res, err
	}
	return t, nil, nil
}

func (h *Handlers) HandleSetActiveTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, res, err := h.ownedTask(ctx, request)
	if res != nil || err != nil {
		return res, err
	}
	t, err = h.repo.SetActiveTask(ctx, h.userID, t.ID)
	if err != nil {
		return toolError("set active task", err)
	}
	return mcp.NewToolResultText("Active: " + formatTask(t)), nil
}

func (h *Handlers) HandleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, res, err := h.ownedTask(ctx, request)
	if res != nil || err != nil {
		return res, err
	}
	t.Completed = true
	t, err = h.repo.UpdateTask(ctx, t)
	if err != nil {
		return toolError("update task", err)
	}
	return mcp.NewToolResultText("Completed " + formatTask(t)), nil
}

func (h *Handlers) HandleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, res, err := h.ownedTask(ctx, request)
	if res != nil || err != nil {
		return res, err
	}
	if err := h.repo.DeleteTask(ctx, t.ID); err != nil {
		return toolError("delete task", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted task #%d", t.ID)), nil
}

func (h *Handlers) HandleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, ok, err := intArg(request, "limit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		limit = store.DefaultSessionLimit
	}
	if limit < 1 || limit > store.DefaultSessionLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", store.DefaultSessionLimit)), nil
	}
	sessions, err := h.repo.ListSessions(ctx, h.userID, limit)
	if err != nil {
		return toolError("list sessions", err)
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions recorded."), nil
	}
	lines := make([]string, len(sessions))
	for i, s := range sessions {
		lines[i] = formatSession(s)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (h *Handlers) HandleRecordSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modeStr, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: mode"), nil
	}
	mode, err := engine.ParseMode(modeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration, ok, err := intArg(request, "duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok || duration < 1 || duration > engine.MaxIntervalMinutes {
		return mcp.NewToolResultError(fmt.Sprintf("duration must be between 1 and %d minutes", engine.MaxIntervalMinutes)), nil
	}

	sess := store.Session{UserID: h.userID, Mode: mode.String(), Duration: duration, CompletedAt: time.Now()}
	if _, present := request.GetArguments()["task_id"]; present {
		t, res, err := h.ownedTask(ctx, request)
		if res != nil || err != nil {
			return res, err
		}
		sess.TaskID = &t.ID
	}

	saved, err := h.repo.RecordSession(ctx, sess)
	if err != nil {
		return toolError("record session", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recorded session #%d: %s %d min", saved.ID, saved.Mode, saved.Duration)), nil
}
