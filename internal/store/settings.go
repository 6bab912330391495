package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSettings returns the user's settings, inserting the defaults if the
// user has none yet.
func (s *Store) GetSettings(ctx context.Context, userID string) (Settings, error) {
	st, err := s.scanSettings(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Settings{}, fmt.Errorf("get settings %q: %w", userID, err)
	}

	def := DefaultSettings(userID)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, work_duration, short_break_duration, long_break_duration, sessions_before_long_break)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, def.WorkDuration, def.ShortBreakDuration, def.LongBreakDuration, def.SessionsBeforeLongBreak,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("insert default settings: %w", err)
	}
	st, err = s.scanSettings(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings %q: %w", userID, err)
	}
	return st, nil
}

func (s *Store) scanSettings(ctx context.Context, userID string) (Settings, error) {
	st := Settings{UserID: userID}
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT work_duration, short_break_duration, long_break_duration, sessions_before_long_break, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&st.WorkDuration, &st.ShortBreakDuration, &st.LongBreakDuration, &st.SessionsBeforeLongBreak, &updatedAt)
	if err != nil {
		return Settings{}, err
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// SaveSettings upserts the user's settings.
func (s *Store) SaveSettings(ctx context.Context, st Settings) (Settings, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, work_duration, short_break_duration, long_break_duration, sessions_before_long_break, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			work_duration = excluded.work_duration,
			short_break_duration = excluded.short_break_duration,
			long_break_duration = excluded.long_break_duration,
			sessions_before_long_break = excluded.sessions_before_long_break,
			updated_at = excluded.updated_at`,
		st.UserID, st.WorkDuration, st.ShortBreakDuration, st.LongBreakDuration, st.SessionsBeforeLongBreak, now,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s.scanSettings(ctx, st.UserID)
}
