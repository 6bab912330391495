package engine

import (
	"errors"
	"time"
)

// Task is a unit of work that pomodoros are credited against.
type Task struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	EstimatedPomodoros int       `json:"estimatedPomodoros"`
	CompletedPomodoros int       `json:"completedPomodoros"`
	Completed          bool      `json:"completed"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HistoryEntry records one completed or skipped interval.
type HistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Mode            Mode      `json:"mode"`
	DurationMinutes int       `json:"duration"`
	TaskID          string    `json:"taskId,omitempty"`
	TaskName        string    `json:"taskName,omitempty"`
}

// Store persists the engine's durable state. Every call reads or writes
// the whole value.
type Store interface {
	// LoadSettings reports ok=false when nothing has been saved yet.
	LoadSettings() (s Settings, ok bool, err error)
	SaveSettings(Settings) error
	LoadTasks() (tasks []Task, activeID string, err error)
	SaveTasks(tasks []Task, activeID string) error
	LoadHistory() ([]HistoryEntry, error)
	AppendHistory(HistoryEntry) error
}

// Snapshot is returned from mode-changing operations for rendering.
type Snapshot struct {
	Mode              Mode
	FormattedDuration string
	SessionIndex      int
	TotalSessions     int
}

// TimerState is the transient timer view; it is never persisted.
type TimerState struct {
	Mode            Mode
	CurrentDuration time.Duration
	Elapsed         time.Duration
	Running         bool
	SessionIndex    int
}

// Remaining returns the time left in the interval.
func (t TimerState) Remaining() time.Duration {
	return t.CurrentDuration - t.Elapsed
}

// TickResult is the outcome of a Tick call.
type TickResult struct {
	Remaining time.Duration
	Progress  float64
	// Boundary is set when the interval finished during this tick. The
	// engine has already recorded history and moved to the next mode.
	Boundary bool
	Finished Mode
	Snapshot Snapshot
}

// Sound identifies an audio cue for the presentation layer.
type Sound string

const (
	SoundWork     Sound = "work"
	SoundBreak    Sound = "break"
	SoundComplete Sound = "complete"
)

// Cue is the sound and notification for entering a mode.
type Cue struct {
	Sound Sound
	Title string
	Body  string
}

// CueFor returns the cue played when the timer enters mode.
func CueFor(m Mode) Cue {
	switch m {
	case ShortBreak:
		return Cue{Sound: SoundBreak, Title: "Short break", Body: "Time to rest."}
	case LongBreak:
		return Cue{Sound: SoundBreak, Title: "Long break", Body: "Time to rest."}
	default:
		return Cue{Sound: SoundWork, Title: "Time to work!", Body: "Start a new work session."}
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for task creation times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the timer and session state machine. It performs no I/O of its
// own and is not safe for concurrent use.
type Engine struct {
	store Store
	now   func() time.Time

	settings Settings

	mode      Mode
	duration  time.Duration
	elapsed   time.Duration
	running   bool
	reference time.Time
	session   int
	credited  bool

	tasks    []Task
	activeID string
	nextID   int64

	history []HistoryEntry

	warnings []error
}

// New builds an engine, loading settings, tasks and history from store.
// Load failures fall back to defaults and are reported through Warnings.
// A nil store keeps everything in memory.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		settings: DefaultSettings(),
		session:  1,
		nextID:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.load()
	e.mode = Work
	e.duration = e.settings.WorkDuration
	return e
}

func (e *Engine) load() {
	if e.store == nil {
		return
	}
	if s, ok, err := e.store.LoadSettings(); err != nil {
		e.warn("load settings", err)
	} else if ok {
		if verr := s.Validate(); verr != nil {
			e.warn("load settings", verr)
		} else {
			e.settings = s
		}
	}

	if tasks, activeID, err := e.store.LoadTasks(); err != nil {
		e.warn("load tasks", err)
	} else {
		e.tasks = tasks
		e.activeID = activeID
		e.nextID = nextTaskID(tasks)
	}

	if history, err := e.store.LoadHistory(); err != nil {
		e.warn("load history", err)
	} else {
		e.history = history
	}
}

// Close stops the timer and detaches the store. The engine must not be
// used afterwards.
func (e *Engine) Close() error {
	e.running = false
	e.store = nil
	return nil
}

func (e *Engine) warn(op string, err error) {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		e.warnings = append(e.warnings, pe)
		return
	}
	e.warnings = append(e.warnings, &PersistenceError{Op: op, Err: err})
}

// Warnings returns and clears the persistence failures collected so far.
func (e *Engine) Warnings() []error {
	w := e.warnings
	e.warnings = nil
	return w
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// State returns the transient timer state.
func (e *Engine) State() TimerState {
	return TimerState{
		Mode:            e.mode,
		CurrentDuration: e.duration,
		Elapsed:         e.elapsed,
		Running:         e.running,
		SessionIndex:    e.session,
	}
}

// Snapshot describes the current mode without touching the timer.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Mode:              e.mode,
		FormattedDuration: FormatDuration(e.duration - e.elapsed),
		SessionIndex:      e.session,
		TotalSessions:     e.settings.SessionsBeforeLongBreak,
	}
}

// Progress is the fraction of the interval elapsed, in [0, 1].
func (e *Engine) Progress() float64 {
	if e.duration <= 0 {
		return 0
	}
	p := float64(e.elapsed) / float64(e.duration)
	if p > 1 {
		return 1
	}
	return p
}

// Start begins or resumes counting. It is a no-op while running.
func (e *Engine) Start(now time.Time) {
	if e.running {
		return
	}
	e.reference = now.Add(-e.elapsed)
	e.running = true
	e.credited = false
}

// Pause freezes the elapsed time. It is idempotent.
func (e *Engine) Pause(now time.Time) {
	if !e.running {
		return
	}
	e.advanceElapsed(now)
	e.running = false
}

// Reset pauses and zeroes elapsed time without changing mode.
func (e *Engine) Reset() {
	e.running = false
	e.elapsed = 0
}

func (e *Engine) advanceElapsed(now time.Time) {
	elapsed := now.Sub(e.reference)
	if elapsed > e.elapsed {
		e.elapsed = elapsed
	}
	if e.elapsed > e.duration {
		e.elapsed = e.duration
	}
}

// Tick recomputes elapsed time from now. When the interval is over it
// records the session, credits the active task and advances the mode.
// Ticks while paused report the frozen state.
func (e *Engine) Tick(now time.Time) TickResult {
	if !e.running {
		return TickResult{
			Remaining: e.duration - e.elapsed,
			Progress:  e.Progress(),
			Snapshot:  e.Snapshot(),
		}
	}

	e.advanceElapsed(now)
	if e.elapsed < e.duration {
		return TickResult{
			Remaining: e.duration - e.elapsed,
			Progress:  e.Progress(),
			Snapshot:  e.Snapshot(),
		}
	}

	finished := e.mode
	e.RecordCompletedSession(finished, now)
	e.CompleteInterval()
	snap := e.AdvanceMode()
	return TickResult{
		Remaining: 0,
		Progress:  1,
		Boundary:  true,
		Finished:  finished,
		Snapshot:  snap,
	}
}

// CompleteInterval stops the timer and credits the active task when the
// interval was Work. Repeated calls credit at most once until the timer
// is started again or the mode changes.
func (e *Engine) CompleteInterval() {
	e.running = false
	e.elapsed = 0
	if e.mode != Work || e.credited {
		return
	}
	e.credited = true
	idx := e.indexOf(e.activeID)
	if idx < 0 {
		return
	}
	e.tasks[idx].CompletedPomodoros++
	e.saveTasks()
}

// AdvanceMode moves to the next mode in the cycle.
func (e *Engine) AdvanceMode() Snapshot {
	if e.mode != Work {
		return e.SetMode(Work)
	}
	if e.session >= e.settings.SessionsBeforeLongBreak {
		e.session = 1
		return e.SetMode(LongBreak)
	}
	e.session++
	return e.SetMode(ShortBreak)
}

// SetMode switches mode and resets the timer to that mode's duration.
func (e *Engine) SetMode(m Mode) Snapshot {
	e.Reset()
	e.mode = m
	e.duration = e.settings.DurationFor(m)
	e.credited = false
	return e.Snapshot()
}

// Skip ends the current interval early. It records history, credits the
// active task for Work and advances, returning the cue for the new mode.
func (e *Engine) Skip(now time.Time) (Snapshot, Cue) {
	e.RecordCompletedSession(e.mode, now)
	e.CompleteInterval()
	snap := e.AdvanceMode()
	return snap, CueFor(snap.Mode)
}

// UpdateSettings validates and applies new settings given in minutes. The
// current mode and elapsed time are kept; only the duration changes.
func (e *Engine) UpdateSettings(m SettingsMinutes) (Snapshot, error) {
	s, err := m.Settings()
	if err != nil {
		return Snapshot{}, err
	}
	e.applySettings(s)
	return e.Snapshot(), nil
}

func (e *Engine) applySettings(s Settings) {
	e.settings = s
	e.duration = s.DurationFor(e.mode)
	if e.elapsed > e.duration {
		e.elapsed = e.duration
	}
	if e.session > s.SessionsBeforeLongBreak {
		e.session = s.SessionsBeforeLongBreak
	}
	if e.store != nil {
		if err := e.store.SaveSettings(s); err != nil {
			e.warn("save settings", err)
		}
	}
}
