// Package client talks to the persistence gateway over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx gateway response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway %d %s: %s", e.Status, e.Type, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

type Settings struct {
	UserID                  string    `json:"user_id,omitempty"`
	WorkDuration            int       `json:"work_duration"`
	ShortBreakDuration      int       `json:"short_break_duration"`
	LongBreakDuration       int       `json:"long_break_duration"`
	SessionsBeforeLongBreak int       `json:"sessions_before_long_break"`
	UpdatedAt               time.Time `json:"updated_at,omitzero"`
}

type Task struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	EstimatedPomodoros int       `json:"estimated_pomodoros"`
	CompletedPomodoros int       `json:"completed_pomodoros"`
	Completed          bool      `json:"completed"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// TaskInput is the writable subset of Task.
type TaskInput struct {
	Name               string `json:"name"`
	EstimatedPomodoros int    `json:"estimated_pomodoros"`
	CompletedPomodoros int    `json:"completed_pomodoros"`
	Completed          bool   `json:"completed"`
}

type Session struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	TaskID      *int64    `json:"task_id"`
	TaskName    *string   `json:"task_name"`
	Mode        string    `json:"mode"`
	Duration    int       `json:"duration"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionInput is the body of a session POST.
type SessionInput struct {
	TaskID      *int64    `json:"task_id,omitempty"`
	Mode        string    `json:"mode"`
	Duration    int       `json:"duration"`
	CompletedAt time.Time `json:"completed_at"`
}

// Client is a typed gateway client.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the gateway at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		return &APIError{Status: resp.StatusCode, Type: eb.Error.Type, Message: eb.Error.Message}
	}
	if out == nil {
		return nil
	}
	env := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func userPath(prefix, userID string) string {
	return prefix + url.PathEscape(userID)
}

func (c *Client) GetSettings(ctx context.Context, userID string) (Settings, error) {
	var s Settings
	err := c.do(ctx, http.MethodGet, userPath("/api/settings/", userID), nil, &s)
	return s, err
}

func (c *Client) PutSettings(ctx context.Context, userID string, s Settings) (Settings, error) {
	in := s
	in.UserID = ""
	in.UpdatedAt = time.Time{}
	var out Settings
	err := c.do(ctx, http.MethodPut, userPath("/api/settings/", userID), in, &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	var tasks []Task
	err := c.do(ctx, http.MethodGet, userPath("/api/tasks/", userID), nil, &tasks)
	return tasks, err
}

func (c *Client) CreateTask(ctx context.Context, userID string, in TaskInput) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPost, userPath("/api/tasks/", userID), in, &t)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, in TaskInput) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(id, 10), in, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) SetActiveTask(ctx context.Context, userID string, id int64) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPut, userPath("/api/tasks/", userID)+"/active/"+strconv.FormatInt(id, 10), nil, &t)
	return t, err
}

func (c *Client) RecordSession(ctx context.Context, userID string, in SessionInput) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, userPath("/api/sessions/", userID), in, &s)
	return s, err
}

// ListSessions returns up to limit sessions, newest first. Zero uses the
// gateway default.
func (c *Client) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	path := userPath("/api/sessions/", userID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var sessions []Session
	err := c.do(ctx, http.MethodGet, path, nil, &sessions)
	return sessions, err
}
