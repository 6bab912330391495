package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) RecordSession(ctx context.Context, sess Session) (Session, error) {
	completedAt := sess.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_history (user_id, task_id, mode, duration, completed_at) VALUES (?, ?, ?, ?, ?)`,
		sess.UserID, sess.TaskID, sess.Mode, sess.Duration, completedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return Session{}, fmt.Errorf("record session: %w", err)
	}
	sess.ID, _ = res.LastInsertId()
	sess.CompletedAt = completedAt.UTC().Truncate(time.Second)
	return sess, nil
}

// ListSessions returns the newest sessions first, with the task name when
// the task still exists.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sh.id, sh.user_id, sh.task_id, t.name, sh.mode, sh.duration, sh.completed_at
		FROM session_history sh
		LEFT JOIN tasks t ON t.id = sh.task_id
		WHERE sh.user_id = ?
		ORDER BY sh.completed_at DESC, sh.id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var taskID sql.NullInt64
		var taskName sql.NullString
		var completedAt string
		if err := rows.Scan(&sess.ID, &sess.UserID, &taskID, &taskName, &sess.Mode, &sess.Duration, &completedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			sess.TaskID = &taskID.Int64
		}
		if taskName.Valid {
			sess.TaskName = &taskName.String
		}
		sess.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionSummary totals sessions per UTC day and mode in [from, to).
func (s *Store) SessionSummary(ctx context.Context, userID string, from, to time.Time) ([]DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(completed_at) AS day, mode, COALESCE(SUM(duration), 0), COUNT(*)
		FROM session_history
		WHERE user_id = ? AND completed_at >= ? AND completed_at < ?
		GROUP BY day, mode
		ORDER BY day, mode`,
		userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}
	defer rows.Close()

	summaries := []DailySummary{}
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.Mode, &ds.TotalMinutes, &ds.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}
