package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/metrics"
	"github.com/sadopc/pomo/internal/store"
)

const (
	maxBodyBytes  = 64 << 10
	maxUserIDLen  = 128
	maxSummaryDay = 366
)

// validationError is a 400 naming the first failing field.
type validationError struct {
	field string
	msg   string
}

func (e *validationError) Error() string {
	return e.field + ": " + e.msg
}

func invalid(field, msg string) error {
	return &validationError{field: field, msg: msg}
}

// ─── Payloads ───────────────────────────────────────────────────────────────

type settingsPayload struct {
	UserID                  string    `json:"user_id"`
	WorkDuration            int       `json:"work_duration"`
	ShortBreakDuration      int       `json:"short_break_duration"`
	LongBreakDuration       int       `json:"long_break_duration"`
	SessionsBeforeLongBreak int       `json:"sessions_before_long_break"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func toSettingsPayload(s store.Settings) settingsPayload {
	return settingsPayload{
		UserID:                  s.UserID,
		WorkDuration:            s.WorkDuration,
		ShortBreakDuration:      s.ShortBreakDuration,
		LongBreakDuration:       s.LongBreakDuration,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
		UpdatedAt:               s.UpdatedAt,
	}
}

type settingsRequest struct {
	WorkDuration            *int `json:"work_duration"`
	ShortBreakDuration      *int `json:"short_break_duration"`
	LongBreakDuration       *int `json:"long_break_duration"`
	SessionsBeforeLongBreak *int `json:"sessions_before_long_break"`
}

type taskPayload struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	EstimatedPomodoros int       `json:"estimated_pomodoros"`
	CompletedPomodoros int       `json:"completed_pomodoros"`
	Completed          bool      `json:"completed"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func toTaskPayload(t store.Task) taskPayload {
	return taskPayload{
		ID:                 t.ID,
		UserID:             t.UserID,
		Name:               t.Name,
		EstimatedPomodoros: t.EstimatedPomodoros,
		CompletedPomodoros: t.CompletedPomodoros,
		Completed:          t.Completed,
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt,
	}
}

type taskRequest struct {
	Name               *string `json:"name"`
	EstimatedPomodoros *int    `json:"estimated_pomodoros"`
	CompletedPomodoros *int    `json:"completed_pomodoros"`
	Completed          *bool   `json:"completed"`
}

type sessionPayload struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	TaskID      *int64    `json:"task_id"`
	TaskName    *string   `json:"task_name"`
	Mode        string    `json:"mode"`
	Duration    int       `json:"duration"`
	CompletedAt time.Time `json:"completed_at"`
}

func toSessionPayload(s store.Session) sessionPayload {
	return sessionPayload{
		ID:          s.ID,
		UserID:      s.UserID,
		TaskID:      s.TaskID,
		TaskName:    s.TaskName,
		Mode:        s.Mode,
		Duration:    s.Duration,
		CompletedAt: s.CompletedAt,
	}
}

type sessionRequest struct {
	TaskID      *int64     `json:"task_id"`
	Mode        string     `json:"mode"`
	Duration    *int       `json:"duration"`
	CompletedAt *time.Time `json:"completed_at"`
}

type summaryPayload struct {
	Date         string `json:"date"`
	Mode         string `json:"mode"`
	TotalMinutes int    `json:"total_minutes"`
	Count        int    `json:"count"`
}

// ─── Request helpers ────────────────────────────────────────────────────────

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("body", "request body is empty")
		}
		return invalid("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func userIDParam(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		return "", invalid("user_id", "must not be empty")
	}
	if len(id) > maxUserIDLen {
		return "", invalid("user_id", fmt.Sprintf("must be at most %d characters", maxUserIDLen))
	}
	return id, nil
}

func taskIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("task_id", "must be a positive integer")
	}
	return id, nil
}

func requirePositive(field string, v *int) error {
	if v == nil {
		return invalid(field, "is required")
	}
	if *v <= 0 {
		return invalid(field, "must be a positive integer")
	}
	return nil
}

// requireMinutes is requirePositive for interval lengths.
func requireMinutes(field string, v *int) error {
	if err := requirePositive(field, v); err != nil {
		return err
	}
	if *v > engine.MaxIntervalMinutes {
		return invalid(field, fmt.Sprintf("must be at most %d minutes", engine.MaxIntervalMinutes))
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > engine.MaxTaskNameLength {
		return "", invalid("name", fmt.Sprintf("must be at most %d characters", engine.MaxTaskNameLength))
	}
	return name, nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "userID")
	if err != nil {
		s.fail(w, r, "get_settings", err)
		return
	}
	st, err := s.repo.GetSettings(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "get_settings", err)
		return
	}
	writeData(w, http.StatusOK, toSettingsPayload(st))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "userID")
	if err != nil {
		s.fail(w, r, "save_settings", err)
		return
	}
	var req settingsRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, "save_settings", err)
		return
	}
	for _, f := range []struct {
		name  string
		v     *int
		check func(string, *int) error
	}{
		{"work_duration", req.WorkDuration, requireMinutes},
		{"short_break_duration", req.ShortBreakDuration, requireMinutes},
		{"long_break_duration", req.LongBreakDuration, requireMinutes},
		{"sessions_before_long_break", req.SessionsBeforeLongBreak, requirePositive},
	} {
		if err := f.check(f.name, f.v); err != nil {
			s.fail(w, r, "save_settings", err)
			return
		}
	}

	st, err := s.repo.SaveSettings(r.Context(), store.Settings{
		UserID:                  userID,
		WorkDuration:            *req.WorkDuration,
		ShortBreakDuration:      *req.ShortBreakDuration,
		LongBreakDuration:       *req.LongBreakDuration,
		SessionsBeforeLongBreak: *req.SessionsBeforeLongBreak,
	})
	if err != nil {
		s.fail(w, r, "save_settings", err)
		return
	}
	writeData(w, http.StatusOK, toSettingsPayload(st))
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "id")
	if err != nil {
		s.fail(w, r, "list_tasks", err)
		return
	}
	tasks, err := s.repo.ListTasks(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "list_tasks", err)
		return
	}
	out := make([]taskPayload, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskPayload(t))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "id")
	if err != nil {
		s.fail(w, r, "create_task", err)
		return
	}
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, "create_task", err)
		return
	}
	if req.Name == nil {
		s.fail(w, r, "create_task", invalid("name", "is required"))
		return
	}
	name, err := validateName(*req.Name)
	if err != nil {
		s.fail(w, r, "create_task", err)
		return
	}
	if err := requirePositive("estimated_pomodoros", req.EstimatedPomodoros); err != nil {
		s.fail(w, r, "create_task", err)
		return
	}
	t := store.Task{UserID: userID, Name: name, EstimatedPomodoros: *req.EstimatedPomodoros}
	if req.CompletedPomodoros != nil {
		if *req.CompletedPomodoros < 0 {
			s.fail(w, r, "create_task", invalid("completed_pomodoros", "must not be negative"))
			return
		}
		t.CompletedPomodoros = *req.CompletedPomodoros
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}

	created, err := s.repo.CreateTask(r.Context(), t)
	if err != nil {
		s.fail(w, r, "create_task", err)
		return
	}
	metrics.TasksCreated.Inc()
	writeData(w, http.StatusCreated, toTaskPayload(created))
}

// handleUpdateTask applies the fields present in the body. The completed
// pomodoro count may not decrease.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r, "id")
	if err != nil {
		s.fail(w, r, "update_task", err)
		return
	}
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, "update_task", err)
		return
	}
	t, err := s.repo.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, "update_task", err)
		return
	}

	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			s.fail(w, r, "update_task", err)
			return
		}
		t.Name = name
	}
	if req.EstimatedPomodoros != nil {
		if err := requirePositive("estimated_pomodoros", req.EstimatedPomodoros); err != nil {
			s.fail(w, r, "update_task", err)
			return
		}
		t.EstimatedPomodoros = *req.EstimatedPomodoros
	}
	if req.CompletedPomodoros != nil {
		if *req.CompletedPomodoros < t.CompletedPomodoros {
			s.fail(w, r, "update_task", invalid("completed_pomodoros", "must not decrease"))
			return
		}
		t.CompletedPomodoros = *req.CompletedPomodoros
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}

	updated, err := s.repo.UpdateTask(r.Context(), t)
	if err != nil {
		s.fail(w, r, "update_task", err)
		return
	}
	writeData(w, http.StatusOK, toTaskPayload(updated))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r, "id")
	if err != nil {
		s.fail(w, r, "delete_task", err)
		return
	}
	if err := s.repo.DeleteTask(r.Context(), id); err != nil {
		s.fail(w, r, "delete_task", err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "id")
	if err != nil {
		s.fail(w, r, "set_active_task", err)
		return
	}
	taskID, err := taskIDParam(r, "taskID")
	if err != nil {
		s.fail(w, r, "set_active_task", err)
		return
	}
	t, err := s.repo.SetActiveTask(r.Context(), userID, taskID)
	if err != nil {
		s.fail(w, r, "set_active_task", err)
		return
	}
	writeData(w, http.StatusOK, toTaskPayload(t))
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "userID")
	if err != nil {
		s.fail(w, r, "record_session", err)
		return
	}
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, "record_session", err)
		return
	}
	if req.Mode == "" {
		s.fail(w, r, "record_session", invalid("mode", "is required"))
		return
	}
	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		s.fail(w, r, "record_session", invalid("mode", "must be one of work, shortBreak, longBreak"))
		return
	}
	if err := requireMinutes("duration", req.Duration); err != nil {
		s.fail(w, r, "record_session", err)
		return
	}
	if req.TaskID != nil {
		t, err := s.repo.GetTask(r.Context(), *req.TaskID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && t.UserID != userID) {
			s.fail(w, r, "record_session", invalid("task_id", "does not reference a task of this user"))
			return
		}
		if err != nil {
			s.fail(w, r, "record_session", err)
			return
		}
	}

	sess := store.Session{
		UserID:   userID,
		TaskID:   req.TaskID,
		Mode:     mode.String(),
		Duration: *req.Duration,
	}
	if req.CompletedAt != nil {
		sess.CompletedAt = *req.CompletedAt
	} else {
		sess.CompletedAt = s.now()
	}

	recorded, err := s.repo.RecordSession(r.Context(), sess)
	if err != nil {
		s.fail(w, r, "record_session", err)
		return
	}
	metrics.SessionsRecorded.WithLabelValues(recorded.Mode).Inc()
	writeData(w, http.StatusCreated, toSessionPayload(recorded))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "userID")
	if err != nil {
		s.fail(w, r, "list_sessions", err)
		return
	}
	limit := store.DefaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > store.DefaultSessionLimit {
			s.fail(w, r, "list_sessions", invalid("limit", fmt.Sprintf("must be between 1 and %d", store.DefaultSessionLimit)))
			return
		}
		limit = n
	}
	sessions, err := s.repo.ListSessions(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, "list_sessions", err)
		return
	}
	out := make([]sessionPayload, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionPayload(sess))
	}
	writeData(w, http.StatusOK, out)
}

// handleSessionSummary totals the last ?days= UTC days, today included.
func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "userID")
	if err != nil {
		s.fail(w, r, "session_summary", err)
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSummaryDay {
			s.fail(w, r, "session_summary", invalid("days", fmt.Sprintf("must be between 1 and %d", maxSummaryDay)))
			return
		}
		days = n
	}
	now := s.now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	rows, err := s.repo.SessionSummary(r.Context(), userID, from, to)
	if err != nil {
		s.fail(w, r, "session_summary", err)
		return
	}
	out := make([]summaryPayload, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryPayload{Date: row.Date, Mode: row.Mode, TotalMinutes: row.TotalMinutes, Count: row.Count})
	}
	writeData(w, http.StatusOK, out)
}
