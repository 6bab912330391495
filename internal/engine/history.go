package engine

import (
	"sort"
	"time"
)

// RecordCompletedSession appends a history entry for mode using the
// configured duration and the active task, if any.
func (e *Engine) RecordCompletedSession(m Mode, now time.Time) HistoryEntry {
	entry := HistoryEntry{
		Timestamp:       now.UTC(),
		Mode:            m,
		DurationMinutes: int(e.settings.DurationFor(m) / time.Minute),
	}
	if t, ok := e.ActiveTask(); ok {
		entry.TaskID = t.ID
		entry.TaskName = t.Name
	}
	e.history = append(e.history, entry)
	if e.store != nil {
		if err := e.store.AppendHistory(entry); err != nil {
			e.warn("append history", err)
		}
	}
	return entry
}

// History returns a copy of all recorded entries, oldest first.
func (e *Engine) History() []HistoryEntry {
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// DayTotal is the Work time recorded on one local calendar day.
type DayTotal struct {
	Day       time.Time
	Minutes   int
	Pomodoros int
}

// WorkByDay totals Work entries for the days days ending on the day of
// now, oldest first. Days with no entries are included with zero totals.
func WorkByDay(history []HistoryEntry, now time.Time, days int) []DayTotal {
	if days <= 0 {
		return nil
	}
	loc := now.Location()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(0, 0, -(days - 1))

	totals := make([]DayTotal, days)
	for i := range totals {
		totals[i].Day = start.AddDate(0, 0, i)
	}
	for _, h := range history {
		if h.Mode != Work {
			continue
		}
		ts := h.Timestamp.In(loc)
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		for i := range totals {
			if totals[i].Day.Equal(day) {
				totals[i].Minutes += h.DurationMinutes
				totals[i].Pomodoros++
				break
			}
		}
	}
	return totals
}

// Recent returns up to limit entries, newest first.
func Recent(history []HistoryEntry, limit int) []HistoryEntry {
	out := make([]HistoryEntry, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
