package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("not found")

// Default settings, in minutes, inserted the first time a user's settings are read.
const (
	DefaultWorkMinutes       = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultSessionsPerCycle  = 4

	// DefaultSessionLimit is how many sessions ListSessions returns when
	// the caller passes zero.
	DefaultSessionLimit = 50
)

// Settings are a user's timer settings in whole minutes.
type Settings struct {
	UserID                  string
	WorkDuration            int
	ShortBreakDuration      int
	LongBreakDuration       int
	SessionsBeforeLongBreak int
	UpdatedAt               time.Time
}

// DefaultSettings returns the defaults for userID.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:                  userID,
		WorkDuration:            DefaultWorkMinutes,
		ShortBreakDuration:      DefaultShortBreakMinutes,
		LongBreakDuration:       DefaultLongBreakMinutes,
		SessionsBeforeLongBreak: DefaultSessionsPerCycle,
	}
}

type Task struct {
	ID                 int64
	UserID             string
	Name               string
	EstimatedPomodoros int
	CompletedPomodoros int
	Completed          bool
	IsActive           bool
	CreatedAt          time.Time
}

// Session is one recorded interval.
type Session struct {
	ID          int64
	UserID      string
	TaskID      *int64
	TaskName    *string // joined from tasks; nil when the task is gone
	Mode        string
	Duration    int // minutes
	CompletedAt time.Time
}

// DailySummary aggregates sessions per day and mode.
type DailySummary struct {
	Date         string
	Mode         string
	TotalMinutes int
	Count        int
}

// Repository is the relational persistence surface shared by the SQLite
// and PostgreSQL backends.
type Repository interface {
	GetSettings(ctx context.Context, userID string) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) (Settings, error)

	ListTasks(ctx context.Context, userID string) ([]Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	SetActiveTask(ctx context.Context, userID string, taskID int64) (Task, error)

	RecordSession(ctx context.Context, s Session) (Session, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]Session, error)
	SessionSummary(ctx context.Context, userID string, from, to time.Time) ([]DailySummary, error)

	Close() error
}
