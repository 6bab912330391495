package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, user_id, name, estimated_pomodoros, completed_pomodoros, completed, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var completed, active int
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.EstimatedPomodoros, &t.CompletedPomodoros, &completed, &active, &createdAt); err != nil {
		return Task{}, err
	}
	t.Completed = completed == 1
	t.IsActive = active == 1
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t Task) (Task, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, name, estimated_pomodoros, completed_pomodoros, completed, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		t.UserID, t.Name, t.EstimatedPomodoros, t.CompletedPomodoros, boolInt(t.Completed), now,
	)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id int64) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks returns the user's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask overwrites the mutable fields. The active flag is only
// changed through SetActiveTask.
func (s *Store) UpdateTask(ctx context.Context, t Task) (Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET name = ?, estimated_pomodoros = ?, completed_pomodoros = ?, completed = ? WHERE id = ?`,
		t.Name, t.EstimatedPomodoros, t.CompletedPomodoros, boolInt(t.Completed), t.ID,
	)
	if err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	return s.GetTask(ctx, t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetActiveTask clears every active flag of the user and sets taskID,
// in one transaction.
func (s *Store) SetActiveTask(ctx context.Context, userID string, taskID int64) (Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM tasks WHERE id = ?`, taskID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID); err != nil {
			return fmt.Errorf("clear active: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET is_active = 1 WHERE id = ?`, taskID); err != nil {
			return fmt.Errorf("mark active: %w", err)
		}
		return nil
	})
	if err != nil {
		return Task{}, fmt.Errorf("set active task %d: %w", taskID, err)
	}
	return s.GetTask(ctx, taskID)
}
