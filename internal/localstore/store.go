package localstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/pomo/internal/engine"
)

// settingsRecord stores durations as integer milliseconds.
type settingsRecord struct {
	WorkDuration            int64 `json:"workDuration"`
	ShortBreakDuration      int64 `json:"shortBreakDuration"`
	LongBreakDuration       int64 `json:"longBreakDuration"`
	SessionsBeforeLongBreak int   `json:"sessionsBeforeLongBreak"`
}

type tasksRecord struct {
	Tasks        []engine.Task `json:"tasks"`
	ActiveTaskID *string       `json:"activeTaskId"`
}

// Store adapts a KV to engine.Store.
type Store struct {
	kv *KV
}

// New returns an engine.Store persisting under dir.
func New(dir string) *Store {
	return &Store{kv: NewKV(dir)}
}

var _ engine.Store = (*Store)(nil)

func (s *Store) LoadSettings() (engine.Settings, bool, error) {
	var rec settingsRecord
	if err := s.kv.Get(KeySettings, &rec); err != nil {
		if errors.Is(err, ErrNoValue) {
			return engine.Settings{}, false, nil
		}
		return engine.Settings{}, false, err
	}
	return engine.Settings{
		WorkDuration:            time.Duration(rec.WorkDuration) * time.Millisecond,
		ShortBreakDuration:      time.Duration(rec.ShortBreakDuration) * time.Millisecond,
		LongBreakDuration:       time.Duration(rec.LongBreakDuration) * time.Millisecond,
		SessionsBeforeLongBreak: rec.SessionsBeforeLongBreak,
	}, true, nil
}

func (s *Store) SaveSettings(st engine.Settings) error {
	return s.kv.Set(KeySettings, settingsRecord{
		WorkDuration:            st.WorkDuration.Milliseconds(),
		ShortBreakDuration:      st.ShortBreakDuration.Milliseconds(),
		LongBreakDuration:       st.LongBreakDuration.Milliseconds(),
		SessionsBeforeLongBreak: st.SessionsBeforeLongBreak,
	})
}

func (s *Store) LoadTasks() ([]engine.Task, string, error) {
	var rec tasksRecord
	if err := s.kv.Get(KeyTasks, &rec); err != nil {
		if errors.Is(err, ErrNoValue) {
			return nil, "", nil
		}
		return nil, "", err
	}
	var active string
	if rec.ActiveTaskID != nil {
		active = *rec.ActiveTaskID
	}
	return rec.Tasks, active, nil
}

func (s *Store) SaveTasks(tasks []engine.Task, activeID string) error {
	rec := tasksRecord{Tasks: tasks}
	if rec.Tasks == nil {
		rec.Tasks = []engine.Task{}
	}
	if activeID != "" {
		rec.ActiveTaskID = &activeID
	}
	return s.kv.Set(KeyTasks, rec)
}

func (s *Store) LoadHistory() ([]engine.HistoryEntry, error) {
	var history []engine.HistoryEntry
	if err := s.kv.Get(KeyHistory, &history); err != nil {
		if errors.Is(err, ErrNoValue) {
			return nil, nil
		}
		return nil, err
	}
	return history, nil
}

// AppendHistory rewrites the whole history value with entry appended. A
// corrupt value is replaced, so history written after it is kept.
func (s *Store) AppendHistory(entry engine.HistoryEntry) error {
	history, err := s.LoadHistory()
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return fmt.Errorf("append history: %w", err)
	}
	return s.kv.Set(KeyHistory, append(history, entry))
}

// Clear removes every key the engine writes.
func (s *Store) Clear() error {
	for _, key := range []string{KeySettings, KeyTasks, KeyHistory} {
		if err := s.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
