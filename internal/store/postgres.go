package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchemaDDL = `
CREATE TABLE IF NOT EXISTS user_settings (
    user_id                    TEXT PRIMARY KEY,
    work_duration              INTEGER NOT NULL DEFAULT 25,
    short_break_duration       INTEGER NOT NULL DEFAULT 5,
    long_break_duration        INTEGER NOT NULL DEFAULT 15,
    sessions_before_long_break INTEGER NOT NULL DEFAULT 4,
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
    id                  BIGSERIAL PRIMARY KEY,
    user_id             TEXT NOT NULL,
    name                TEXT NOT NULL,
    estimated_pomodoros INTEGER NOT NULL DEFAULT 1,
    completed_pomodoros INTEGER NOT NULL DEFAULT 0,
    completed           BOOLEAN NOT NULL DEFAULT false,
    is_active           BOOLEAN NOT NULL DEFAULT false,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);

CREATE TABLE IF NOT EXISTS session_history (
    id           BIGSERIAL PRIMARY KEY,
    user_id      TEXT NOT NULL,
    task_id      BIGINT REFERENCES tasks(id) ON DELETE SET NULL,
    mode         TEXT NOT NULL,
    duration     INTEGER NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON session_history(user_id, completed_at);
`

// PostgresStore is the PostgreSQL Repository, backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresStore)(nil)

// NewPostgres connects to connString and ensures the schema exists.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) GetSettings(ctx context.Context, userID string) (Settings, error) {
	def := DefaultSettings(userID)
	// The no-op update makes RETURNING yield the existing row on conflict.
	row := p.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, work_duration, short_break_duration, long_break_duration, sessions_before_long_break)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING work_duration, short_break_duration, long_break_duration, sessions_before_long_break, updated_at`,
		userID, def.WorkDuration, def.ShortBreakDuration, def.LongBreakDuration, def.SessionsBeforeLongBreak)

	st := Settings{UserID: userID}
	if err := row.Scan(&st.WorkDuration, &st.ShortBreakDuration, &st.LongBreakDuration, &st.SessionsBeforeLongBreak, &st.UpdatedAt); err != nil {
		return Settings{}, fmt.Errorf("get settings %q: %w", userID, err)
	}
	return st, nil
}

func (p *PostgresStore) SaveSettings(ctx context.Context, s Settings) (Settings, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, work_duration, short_break_duration, long_break_duration, sessions_before_long_break, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE SET
			work_duration = EXCLUDED.work_duration,
			short_break_duration = EXCLUDED.short_break_duration,
			long_break_duration = EXCLUDED.long_break_duration,
			sessions_before_long_break = EXCLUDED.sessions_before_long_break,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		s.UserID, s.WorkDuration, s.ShortBreakDuration, s.LongBreakDuration, s.SessionsBeforeLongBreak)
	if err := row.Scan(&s.UpdatedAt); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

func scanPgTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.EstimatedPomodoros, &t.CompletedPomodoros, &t.Completed, &t.IsActive, &t.CreatedAt)
	return t, err
}

func (p *PostgresStore) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (p *PostgresStore) GetTask(ctx context.Context, id int64) (Task, error) {
	t, err := scanPgTask(p.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (p *PostgresStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	created, err := scanPgTask(p.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, name, estimated_pomodoros, completed_pomodoros, completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		t.UserID, t.Name, t.EstimatedPomodoros, t.CompletedPomodoros, t.Completed))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) UpdateTask(ctx context.Context, t Task) (Task, error) {
	updated, err := scanPgTask(p.pool.QueryRow(ctx, `
		UPDATE tasks SET name = $1, estimated_pomodoros = $2, completed_pomodoros = $3, completed = $4
		WHERE id = $5
		RETURNING `+taskColumns,
		t.Name, t.EstimatedPomodoros, t.CompletedPomodoros, t.Completed, t.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	return updated, nil
}

func (p *PostgresStore) DeleteTask(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetActiveTask clears and sets the active flag in one transaction. The
// user's rows are locked first so concurrent calls serialize.
func (p *PostgresStore) SetActiveTask(ctx context.Context, userID string, taskID int64) (Task, error) {
	var active Task
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT id FROM tasks WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
			return fmt.Errorf("lock tasks: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE tasks SET is_active = false WHERE user_id = $1 AND is_active`, userID); err != nil {
			return fmt.Errorf("clear active: %w", err)
		}
		var err error
		active, err = scanPgTask(tx.QueryRow(ctx, `
			UPDATE tasks SET is_active = true
			WHERE id = $1 AND user_id = $2
			RETURNING `+taskColumns, taskID, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return Task{}, fmt.Errorf("set active task %d: %w", taskID, err)
	}
	return active, nil
}

func (p *PostgresStore) RecordSession(ctx context.Context, s Session) (Session, error) {
	completedAt := s.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO session_history (user_id, task_id, mode, duration, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, completed_at`,
		s.UserID, s.TaskID, s.Mode, s.Duration, completedAt.UTC()).Scan(&s.ID, &s.CompletedAt)
	if err != nil {
		return Session{}, fmt.Errorf("record session: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	rows, err := p.pool.Query(ctx, `
		SELECT sh.id, sh.user_id, sh.task_id, t.name, sh.mode, sh.duration, sh.completed_at
		FROM session_history sh
		LEFT JOIN tasks t ON t.id = sh.task_id
		WHERE sh.user_id = $1
		ORDER BY sh.completed_at DESC, sh.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.TaskID, &s.TaskName, &s.Mode, &s.Duration, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (p *PostgresStore) SessionSummary(ctx context.Context, userID string, from, to time.Time) ([]DailySummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT to_char(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, mode,
		       COALESCE(SUM(duration), 0)::int, COUNT(*)::int
		FROM session_history
		WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
		GROUP BY day, mode
		ORDER BY day, mode`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}
	defer rows.Close()

	summaries := []DailySummary{}
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.Mode, &ds.TotalMinutes, &ds.Count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}
