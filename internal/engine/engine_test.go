package engine

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// memStore is an in-memory Store that can be told to fail.
type memStore struct {
	settings    Settings
	hasSettings bool
	tasks       []Task
	activeID    string
	history     []HistoryEntry

	failSave bool
	failLoad bool

	saveTaskCalls int
}

var errDisk = errors.New("disk full")

func (m *memStore) LoadSettings() (Settings, bool, error) {
	if m.failLoad {
		return Settings{}, false, errDisk
	}
	return m.settings, m.hasSettings, nil
}

func (m *memStore) SaveSettings(s Settings) error {
	if m.failSave {
		return errDisk
	}
	m.settings, m.hasSettings = s, true
	return nil
}

func (m *memStore) LoadTasks() ([]Task, string, error) {
	if m.failLoad {
		return nil, "", errDisk
	}
	out := make([]Task, len(m.tasks))
	copy(out, m.tasks)
	return out, m.activeID, nil
}

func (m *memStore) SaveTasks(tasks []Task, activeID string) error {
	m.saveTaskCalls++
	if m.failSave {
		return errDisk
	}
	m.tasks = tasks
	m.activeID = activeID
	return nil
}

func (m *memStore) LoadHistory() ([]HistoryEntry, error) {
	if m.failLoad {
		return nil, errDisk
	}
	return m.history, nil
}

func (m *memStore) AppendHistory(h HistoryEntry) error {
	if m.failSave {
		return errDisk
	}
	m.history = append(m.history, h)
	return nil
}

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memStore) {
	t.Helper()
	st := &memStore{}
	e := New(st, WithClock(func() time.Time { return t0 }))
	t.Cleanup(func() { e.Close() })
	return e, st
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// ============================================================
// Initial state
// ============================================================

func TestNewDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	st := e.State()
	if st.Mode != Work || st.SessionIndex != 1 || st.Elapsed != 0 || st.Running {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.CurrentDuration != minutes(25) {
		t.Fatalf("expected 25m, got %v", st.CurrentDuration)
	}
	if w := e.Warnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
}

func TestNewLoadsStoredState(t *testing.T) {
	st := &memStore{
		settings:    Settings{minutes(50), minutes(10), minutes(30), 2},
		hasSettings: true,
		tasks:       []Task{{ID: "7", Name: "write", EstimatedPomodoros: 2}},
		activeID:    "7",
	}
	e := New(st)
	if e.State().CurrentDuration != minutes(50) {
		t.Fatalf("expected loaded work duration, got %v", e.State().CurrentDuration)
	}
	if id := e.ActiveTaskID(); id != "7" {
		t.Fatalf("expected active 7, got %q", id)
	}
	task, err := e.AddTask("next", 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != "8" {
		t.Fatalf("expected id after loaded max, got %q", task.ID)
	}
}

func TestNewFallsBackOnLoadFailure(t *testing.T) {
	e := New(&memStore{failLoad: true})
	if e.Settings() != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", e.Settings())
	}
	w := e.Warnings()
	if len(w) != 3 {
		t.Fatalf("expected 3 load warnings, got %d", len(w))
	}
	var pe *PersistenceError
	if !errors.As(w[0], &pe) || pe.Op != "load settings" {
		t.Fatalf("expected load settings persistence error, got %v", w[0])
	}
	if len(e.Warnings()) != 0 {
		t.Fatal("warnings should be drained")
	}
}

func TestNewRejectsInvalidStoredSettings(t *testing.T) {
	st := &memStore{settings: Settings{0, minutes(5), minutes(15), 4}, hasSettings: true}
	e := New(st)
	if e.Settings() != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", e.Settings())
	}
	if len(e.Warnings()) != 1 {
		t.Fatal("expected one warning")
	}
}

func TestNilStore(t *testing.T) {
	e := New(nil)
	if _, err := e.AddTask("a", 1); err != nil {
		t.Fatal(err)
	}
	e.Skip(t0)
	if len(e.History()) != 1 {
		t.Fatal("expected history kept in memory")
	}
}

// ============================================================
// Modes
// ============================================================

func TestSetModeDurations(t *testing.T) {
	e, _ := newTestEngine(t)
	tests := []struct {
		mode Mode
		want string
	}{
		{ShortBreak, "05:00"},
		{LongBreak, "15:00"},
		{Work, "25:00"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			snap := e.SetMode(tt.mode)
			if snap.FormattedDuration != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, snap.FormattedDuration)
			}
			if snap.Mode != tt.mode || snap.TotalSessions != 4 {
				t.Fatalf("unexpected snapshot %+v", snap)
			}
		})
	}
}

func TestSetModeResetsTimer(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	e.Tick(t0.Add(time.Minute))
	e.SetMode(ShortBreak)
	st := e.State()
	if st.Running || st.Elapsed != 0 {
		t.Fatalf("expected reset timer, got %+v", st)
	}
}

func TestModeCycle(t *testing.T) {
	e, _ := newTestEngine(t)
	want := []struct {
		mode    Mode
		session int
	}{
		{ShortBreak, 2}, {Work, 2},
		{ShortBreak, 3}, {Work, 3},
		{ShortBreak, 4}, {Work, 4},
		{LongBreak, 1}, {Work, 1},
	}
	for i, w := range want {
		snap := e.AdvanceMode()
		if snap.Mode != w.mode || snap.SessionIndex != w.session {
			t.Fatalf("step %d: expected %s/%d, got %s/%d", i, w.mode, w.session, snap.Mode, snap.SessionIndex)
		}
	}
}

func TestModeCycleSingleSession(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.UpdateSettings(SettingsMinutes{25, 5, 15, 1}); err != nil {
		t.Fatal(err)
	}
	if snap := e.AdvanceMode(); snap.Mode != LongBreak || snap.SessionIndex != 1 {
		t.Fatalf("expected long break, got %+v", snap)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Work, ShortBreak, LongBreak} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("parse %s: got %v, %v", m, got, err)
		}
	}
	_, err := ParseMode("nap")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "mode" {
		t.Fatalf("expected mode validation error, got %v", err)
	}
}

// ============================================================
// Timer
// ============================================================

func TestStartTickPause(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	res := e.Tick(t0.Add(5 * time.Minute))
	if res.Boundary {
		t.Fatal("unexpected boundary")
	}
	if res.Remaining != minutes(20) {
		t.Fatalf("expected 20m remaining, got %v", res.Remaining)
	}
	if res.Progress != 0.2 {
		t.Fatalf("expected progress 0.2, got %v", res.Progress)
	}

	e.Pause(t0.Add(6 * time.Minute))
	e.Pause(t0.Add(9 * time.Minute))
	if e.State().Elapsed != minutes(6) {
		t.Fatalf("expected 6m elapsed after pause, got %v", e.State().Elapsed)
	}

	// Resume later; the paused gap does not count.
	e.Start(t0.Add(20 * time.Minute))
	res = e.Tick(t0.Add(21 * time.Minute))
	if res.Remaining != minutes(18) {
		t.Fatalf("expected 18m remaining, got %v", res.Remaining)
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	e.Start(t0.Add(10 * time.Minute))
	if res := e.Tick(t0.Add(10 * time.Minute)); res.Remaining != minutes(15) {
		t.Fatalf("second start moved reference: %v", res.Remaining)
	}
}

func TestTickIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	now := t0.Add(90 * time.Second)
	a := e.Tick(now)
	b := e.Tick(now)
	if a != b {
		t.Fatalf("ticks differ: %+v vs %+v", a, b)
	}
}

func TestTickProgressMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	a := e.Tick(t0.Add(2 * time.Minute))
	b := e.Tick(t0.Add(time.Minute))
	if b.Progress < a.Progress {
		t.Fatalf("progress went backwards: %v -> %v", a.Progress, b.Progress)
	}
}

func TestTickWhilePaused(t *testing.T) {
	e, st := newTestEngine(t)
	res := e.Tick(t0.Add(time.Hour))
	if res.Boundary || res.Remaining != minutes(25) || res.Progress != 0 {
		t.Fatalf("paused tick changed state: %+v", res)
	}
	if len(st.history) != 0 {
		t.Fatal("paused tick recorded history")
	}
}

func TestTickBoundaryExact(t *testing.T) {
	e, st := newTestEngine(t)
	task, _ := e.AddTask("write", 4)
	e.SetActiveTask(task.ID)
	e.Start(t0)

	res := e.Tick(t0.Add(1_499_999 * time.Millisecond))
	if res.Boundary {
		t.Fatal("boundary fired early")
	}
	if got := FormatDuration(res.Remaining); got != "00:01" {
		t.Fatalf("expected 00:01, got %s", got)
	}

	res = e.Tick(t0.Add(1_500_000 * time.Millisecond))
	if !res.Boundary || res.Progress != 1 || res.Remaining != 0 {
		t.Fatalf("expected boundary, got %+v", res)
	}
	if res.Finished != Work {
		t.Fatalf("expected finished work, got %s", res.Finished)
	}
	if res.Snapshot.Mode != ShortBreak || res.Snapshot.SessionIndex != 2 {
		t.Fatalf("expected short break 2, got %+v", res.Snapshot)
	}
	if e.State().Running {
		t.Fatal("timer should stop at boundary")
	}
	if len(st.history) != 1 || st.history[0].Mode != Work || st.history[0].DurationMinutes != 25 {
		t.Fatalf("unexpected history %+v", st.history)
	}

	// Ticking again at the same instant without Start changes nothing.
	res = e.Tick(t0.Add(1_500_000 * time.Millisecond))
	if res.Boundary {
		t.Fatalf("second tick fired another boundary: %+v", res)
	}
	if got, _ := e.Task(task.ID); got.CompletedPomodoros != 1 {
		t.Fatalf("expected 1 completed pomodoro, got %d", got.CompletedPomodoros)
	}
	if len(st.history) != 1 {
		t.Fatalf("second tick recorded history: %+v", st.history)
	}
}

func TestTickLateBoundaryClamps(t *testing.T) {
	e, st := newTestEngine(t)
	e.SetMode(ShortBreak)
	e.Start(t0)
	res := e.Tick(t0.Add(time.Hour))
	if !res.Boundary || res.Snapshot.Mode != Work {
		t.Fatalf("expected return to work, got %+v", res)
	}
	if len(st.history) != 1 || st.history[0].Mode != ShortBreak {
		t.Fatalf("expected one short break entry, got %+v", st.history)
	}
}

func TestReset(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetMode(LongBreak)
	e.Start(t0)
	e.Tick(t0.Add(3 * time.Minute))
	e.Reset()
	st := e.State()
	if st.Running || st.Elapsed != 0 || st.Mode != LongBreak {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
}

// ============================================================
// Crediting
// ============================================================

func TestCompleteIntervalCreditsOnce(t *testing.T) {
	e, st := newTestEngine(t)
	task, _ := e.AddTask("report", 3)
	e.SetActiveTask(task.ID)

	e.CompleteInterval()
	e.CompleteInterval()

	got, _ := e.Task(task.ID)
	if got.CompletedPomodoros != 1 {
		t.Fatalf("expected 1 credited pomodoro, got %d", got.CompletedPomodoros)
	}
	if st.tasks[0].CompletedPomodoros != 1 {
		t.Fatal("credit not persisted")
	}

	e.Start(t0)
	e.CompleteInterval()
	got, _ = e.Task(task.ID)
	if got.CompletedPomodoros != 2 {
		t.Fatalf("expected credit after restart, got %d", got.CompletedPomodoros)
	}
}

func TestCompleteIntervalBreakNoCredit(t *testing.T) {
	e, _ := newTestEngine(t)
	task, _ := e.AddTask("report", 3)
	e.SetActiveTask(task.ID)
	e.SetMode(ShortBreak)
	e.CompleteInterval()
	got, _ := e.Task(task.ID)
	if got.CompletedPomodoros != 0 {
		t.Fatal("break credited a pomodoro")
	}
}

func TestSkip(t *testing.T) {
	e, st := newTestEngine(t)
	task, _ := e.AddTask("email", 1)
	e.SetActiveTask(task.ID)
	e.Start(t0)

	snap, cue := e.Skip(t0.Add(time.Minute))
	if snap.Mode != ShortBreak || cue.Sound != SoundBreak || cue.Title != "Short break" {
		t.Fatalf("unexpected skip result %+v %+v", snap, cue)
	}
	if len(st.history) != 1 || st.history[0].TaskID != task.ID || st.history[0].TaskName != "email" {
		t.Fatalf("history missing task: %+v", st.history)
	}
	got, _ := e.Task(task.ID)
	if got.CompletedPomodoros != 1 {
		t.Fatal("skip of work should credit")
	}

	snap, cue = e.Skip(t0.Add(2 * time.Minute))
	if snap.Mode != Work || cue.Sound != SoundWork {
		t.Fatalf("expected work cue, got %+v %+v", snap, cue)
	}
}

// ============================================================
// Settings
// ============================================================

func TestUpdateSettingsInWork(t *testing.T) {
	e, st := newTestEngine(t)
	snap, err := e.UpdateSettings(SettingsMinutes{50, 10, 30, 2})
	if err != nil {
		t.Fatal(err)
	}
	if snap.FormattedDuration != "50:00" || snap.TotalSessions != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if st.settings.WorkDuration != minutes(50) {
		t.Fatal("settings not persisted")
	}
}

func TestUpdateSettingsInShortBreak(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetMode(ShortBreak)
	snap, err := e.UpdateSettings(SettingsMinutes{50, 10, 30, 2})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Mode != ShortBreak || e.State().CurrentDuration != minutes(10) {
		t.Fatalf("expected short break at 10m, got %+v", e.State())
	}
}

func TestUpdateSettingsKeepsElapsed(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(t0)
	e.Tick(t0.Add(5 * time.Minute))
	if _, err := e.UpdateSettings(SettingsMinutes{30, 5, 15, 4}); err != nil {
		t.Fatal(err)
	}
	if res := e.Tick(t0.Add(5 * time.Minute)); res.Remaining != minutes(25) {
		t.Fatalf("expected 25m left of 30m, got %v", res.Remaining)
	}
}

func TestUpdateSettingsClampsSession(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 0; i < 6; i++ {
		e.AdvanceMode()
	}
	if e.State().SessionIndex != 4 {
		t.Fatalf("setup: expected session 4, got %d", e.State().SessionIndex)
	}
	snap, err := e.UpdateSettings(SettingsMinutes{25, 5, 15, 2})
	if err != nil {
		t.Fatal(err)
	}
	if snap.SessionIndex != 2 {
		t.Fatalf("expected clamped session 2, got %d", snap.SessionIndex)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    SettingsMinutes
		field string
	}{
		{"zero work", SettingsMinutes{0, 5, 15, 4}, "workDuration"},
		{"negative short", SettingsMinutes{25, -1, 15, 4}, "shortBreakDuration"},
		{"zero long", SettingsMinutes{25, 5, 0, 4}, "longBreakDuration"},
		{"zero sessions", SettingsMinutes{25, 5, 15, 0}, "sessionsBeforeLongBreak"},
		{"work over cap", SettingsMinutes{MaxIntervalMinutes + 1, 5, 15, 4}, "workDuration"},
		{"work that would overflow", SettingsMinutes{400_000_000, 5, 15, 4}, "workDuration"},
		{"long break over cap", SettingsMinutes{25, 5, MaxIntervalMinutes + 1, 4}, "longBreakDuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, st := newTestEngine(t)
			_, err := e.UpdateSettings(tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
			if e.Settings() != DefaultSettings() || st.hasSettings {
				t.Fatal("invalid settings mutated state")
			}
		})
	}
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	e, st := newTestEngine(t)
	st.failSave = true
	if _, err := e.UpdateSettings(SettingsMinutes{40, 5, 15, 4}); err != nil {
		t.Fatal(err)
	}
	if e.Settings().WorkDuration != minutes(40) {
		t.Fatal("in-memory settings should still change")
	}
	w := e.Warnings()
	if len(w) != 1 || !errors.Is(w[0], errDisk) {
		t.Fatalf("expected disk warning, got %v", w)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestAddTask(t *testing.T) {
	e, st := newTestEngine(t)
	a, err := e.AddTask("  plan  ", 2)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.AddTask("build", 1)
	if a.ID == b.ID {
		t.Fatal("ids must be unique")
	}
	if a.Name != "plan" || !a.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected task %+v", a)
	}
	if len(st.tasks) != 2 {
		t.Fatal("tasks not persisted")
	}
}

func TestAddTaskValidation(t *testing.T) {
	e, st := newTestEngine(t)
	if _, err := e.AddTask("   ", 1); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := e.AddTask("x", 0); err == nil {
		t.Fatal("expected error for zero estimate")
	}
	if _, err := e.AddTask(strings.Repeat("é", MaxTaskNameLength+1), 1); err == nil {
		t.Fatal("expected error for an over-long name")
	}
	if len(e.Tasks()) != 0 || st.saveTaskCalls != 0 {
		t.Fatal("rejected input mutated state")
	}
	if _, err := e.AddTask(strings.Repeat("é", MaxTaskNameLength), 1); err != nil {
		t.Fatalf("name at the limit rejected: %v", err)
	}
}

func TestSettingsAtCapRoundTrip(t *testing.T) {
	in := SettingsMinutes{MaxIntervalMinutes, MaxIntervalMinutes, MaxIntervalMinutes, 4}
	s, err := in.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Minutes() != in {
		t.Fatalf("round trip changed settings: %+v", s.Minutes())
	}
}

func TestToggleCompletionTwice(t *testing.T) {
	e, _ := newTestEngine(t)
	task, _ := e.AddTask("a", 1)
	first, ok := e.ToggleCompletion(task.ID)
	if !ok || !first.Completed {
		t.Fatal("expected completed")
	}
	second, _ := e.ToggleCompletion(task.ID)
	if second.Completed != task.Completed {
		t.Fatal("double toggle should restore")
	}
	if _, ok := e.ToggleCompletion("missing"); ok {
		t.Fatal("unknown id should be negative")
	}
}

func TestDeleteActiveTask(t *testing.T) {
	e, st := newTestEngine(t)
	task, _ := e.AddTask("a", 1)
	e.SetActiveTask(task.ID)
	if !e.DeleteTask(task.ID) {
		t.Fatal("delete failed")
	}
	if _, ok := e.ActiveTask(); ok {
		t.Fatal("active task should be cleared")
	}
	if st.activeID != "" {
		t.Fatal("cleared active id not persisted")
	}
	if e.DeleteTask(task.ID) {
		t.Fatal("second delete should be negative")
	}
}

func TestSetActiveTaskUnknown(t *testing.T) {
	e, _ := newTestEngine(t)
	task, _ := e.AddTask("a", 1)
	e.SetActiveTask(task.ID)
	if e.SetActiveTask("nope") {
		t.Fatal("unknown id accepted")
	}
	if e.ActiveTaskID() != task.ID {
		t.Fatal("failed set should keep previous active task")
	}
	e.ClearActiveTask()
	if e.ActiveTaskID() != "" {
		t.Fatal("expected no active task")
	}
}

func TestDanglingActiveID(t *testing.T) {
	e := New(&memStore{activeID: "99"})
	if _, ok := e.ActiveTask(); ok {
		t.Fatal("dangling id should read as no task")
	}
	e.CompleteInterval()
	if e.ActiveTaskID() != "" {
		t.Fatal("expected empty active id")
	}
}

// ============================================================
// History
// ============================================================

func TestWorkByDay(t *testing.T) {
	now := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	history := []HistoryEntry{
		{Timestamp: now.Add(-time.Hour), Mode: Work, DurationMinutes: 25},
		{Timestamp: now.Add(-2 * time.Hour), Mode: Work, DurationMinutes: 25},
		{Timestamp: now.Add(-time.Hour), Mode: ShortBreak, DurationMinutes: 5},
		{Timestamp: now.AddDate(0, 0, -2), Mode: Work, DurationMinutes: 50},
		{Timestamp: now.AddDate(0, 0, -30), Mode: Work, DurationMinutes: 25},
	}
	days := WorkByDay(history, now, 7)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[6].Minutes != 50 || days[6].Pomodoros != 2 {
		t.Fatalf("unexpected today %+v", days[6])
	}
	if days[4].Minutes != 50 {
		t.Fatalf("unexpected two days ago %+v", days[4])
	}
	if days[0].Minutes != 0 {
		t.Fatal("old entry should be excluded")
	}
}

func TestRecent(t *testing.T) {
	var history []HistoryEntry
	for i := 0; i < 5; i++ {
		history = append(history, HistoryEntry{Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	got := Recent(history, 3)
	if len(got) != 3 || !got[0].Timestamp.Equal(t0.Add(4*time.Minute)) {
		t.Fatalf("unexpected recent %+v", got)
	}
	if !history[0].Timestamp.Equal(t0) {
		t.Fatal("input reordered")
	}
}

// ============================================================
// Format
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{1, "00:01"},
		{999 * time.Millisecond, "00:01"},
		{time.Second, "00:01"},
		{61 * time.Second, "01:01"},
		{25 * time.Minute, "25:00"},
		{90 * time.Minute, "90:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
