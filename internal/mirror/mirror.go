// Package mirror decorates a local engine.Store so every write is also
// replayed against the persistence gateway in the background.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sadopc/pomo/internal/client"
	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/metrics"
)

// StateKey is the local key holding the task id map.
const StateKey = "pomodoroMirror"

// Gateway is the subset of the gateway client the mirror writes through.
type Gateway interface {
	PutSettings(ctx context.Context, userID string, s client.Settings) (client.Settings, error)
	CreateTask(ctx context.Context, userID string, in client.TaskInput) (client.Task, error)
	UpdateTask(ctx context.Context, id int64, in client.TaskInput) (client.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	SetActiveTask(ctx context.Context, userID string, id int64) (client.Task, error)
	RecordSession(ctx context.Context, userID string, in client.SessionInput) (client.Session, error)
}

// StateStore keeps the mirror's bookkeeping next to the local data.
// *localstore.KV satisfies it.
type StateStore interface {
	Get(key string, v any) error
	Set(key string, v any) error
}

// Options configures a Mirror.
type Options struct {
	UserID     string
	MaxRetries int           // attempts after the first failure
	BaseDelay  time.Duration // doubles each retry
	MaxDelay   time.Duration
	QueueSize  int
	Logger     *log.Logger
}

func (o *Options) defaults() {
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

// Backoff returns the delay before retry attempt n (1-based):
// base * 2^(n-1), capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type opKind int

const (
	opSettings opKind = iota
	opTasks
	opHistory
)

func (k opKind) String() string {
	switch k {
	case opSettings:
		return "settings"
	case opTasks:
		return "tasks"
	default:
		return "history"
	}
}

type op struct {
	kind     opKind
	settings engine.Settings
	tasks    []engine.Task
	activeID string
	entry    engine.HistoryEntry
}

// remoteTask is the last state of a task as the gateway saw it. A rejected
// task was refused by the gateway and has no remote id; it is retried only
// once its input changes.
type remoteTask struct {
	RemoteID int64            `json:"remoteId"`
	Input    client.TaskInput `json:"input"`
	Rejected bool             `json:"rejected,omitempty"`
}

type state struct {
	Tasks    map[string]remoteTask `json:"tasks"`
	ActiveID string                `json:"activeId"`
}

// Mirror is an engine.Store that writes locally first and then queues the
// same change for the gateway. Gateway failures never reach the engine.
type Mirror struct {
	local engine.Store
	gw    Gateway
	meta  StateStore
	opts  Options

	mu     sync.Mutex
	closed bool
	queue  chan op

	// owned by the worker goroutine
	st state

	cancel context.CancelFunc
	done   chan struct{}
}

var _ engine.Store = (*Mirror)(nil)

// New starts the background worker. meta may be nil, in which case the id
// map lives only in memory.
func New(local engine.Store, gw Gateway, meta StateStore, opts Options) *Mirror {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mirror{
		local:  local,
		gw:     gw,
		meta:   meta,
		opts:   opts,
		queue:  make(chan op, opts.QueueSize),
		st:     state{Tasks: map[string]remoteTask{}},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if meta != nil {
		var st state
		if err := meta.Get(StateKey, &st); err == nil && st.Tasks != nil {
			m.st = st
		}
	}
	go m.run(ctx)
	return m
}

func (m *Mirror) LoadSettings() (engine.Settings, bool, error) { return m.local.LoadSettings() }

func (m *Mirror) LoadTasks() ([]engine.Task, string, error) { return m.local.LoadTasks() }

func (m *Mirror) LoadHistory() ([]engine.HistoryEntry, error) { return m.local.LoadHistory() }

func (m *Mirror) SaveSettings(s engine.Settings) error {
	if err := m.local.SaveSettings(s); err != nil {
		return err
	}
	m.enqueue(op{kind: opSettings, settings: s})
	return nil
}

func (m *Mirror) SaveTasks(tasks []engine.Task, activeID string) error {
	if err := m.local.SaveTasks(tasks, activeID); err != nil {
		return err
	}
	m.enqueue(op{kind: opTasks, tasks: append([]engine.Task(nil), tasks...), activeID: activeID})
	return nil
}

func (m *Mirror) AppendHistory(h engine.HistoryEntry) error {
	if err := m.local.AppendHistory(h); err != nil {
		return err
	}
	m.enqueue(op{kind: opHistory, entry: h})
	return nil
}

func (m *Mirror) enqueue(o op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		metrics.MirrorDropped.WithLabelValues(o.kind.String(), "closed").Inc()
		return
	}
	select {
	case m.queue <- o:
		metrics.MirrorQueueDepth.Set(float64(len(m.queue)))
	default:
		metrics.MirrorDropped.WithLabelValues(o.kind.String(), "overflow").Inc()
		m.opts.Logger.Printf("queue full, dropping %s write", o.kind)
	}
}

// Close stops accepting writes and drains the queue. If ctx ends first the
// in-flight request is cancelled and the rest are abandoned.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		m.cancel()
		<-m.done
		return ctx.Err()
	}
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)
	defer m.cancel()
	for o := range m.queue {
		metrics.MirrorQueueDepth.Set(float64(len(m.queue)))
		if ctx.Err() != nil {
			metrics.MirrorDropped.WithLabelValues(o.kind.String(), "closed").Inc()
			continue
		}
		m.process(ctx, o)
	}
}

// process applies o, retrying temporary failures with exponential backoff.
func (m *Mirror) process(ctx context.Context, o op) {
	for attempt := 0; ; attempt++ {
		err := m.apply(ctx, o)
		if err == nil {
			return
		}
		if !retryable(err) {
			metrics.MirrorDropped.WithLabelValues(o.kind.String(), "rejected").Inc()
			m.opts.Logger.Printf("%s write rejected: %v", o.kind, err)
			return
		}
		if attempt >= m.opts.MaxRetries {
			metrics.MirrorDropped.WithLabelValues(o.kind.String(), "exhausted").Inc()
			m.opts.Logger.Printf("%s write failed after %d attempts: %v", o.kind, attempt+1, err)
			return
		}
		metrics.MirrorRetries.WithLabelValues(o.kind.String()).Inc()
		t := time.NewTimer(Backoff(m.opts.BaseDelay, m.opts.MaxDelay, attempt+1))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			metrics.MirrorDropped.WithLabelValues(o.kind.String(), "closed").Inc()
			return
		}
	}
}

// retryable reports whether err is a transport failure or a temporary
// gateway response.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func (m *Mirror) apply(ctx context.Context, o op) error {
	switch o.kind {
	case opSettings:
		mins := o.settings.Minutes()
		_, err := m.gw.PutSettings(ctx, m.opts.UserID, client.Settings{
			WorkDuration:            mins.Work,
			ShortBreakDuration:      mins.ShortBreak,
			LongBreakDuration:       mins.LongBreak,
			SessionsBeforeLongBreak: mins.SessionsBeforeLongBreak,
		})
		return err
	case opTasks:
		return m.syncTasks(ctx, o.tasks, o.activeID)
	default:
		return m.recordSession(ctx, o.entry)
	}
}

func taskInput(t engine.Task) client.TaskInput {
	return client.TaskInput{
		Name:               t.Name,
		EstimatedPomodoros: t.EstimatedPomodoros,
		CompletedPomodoros: t.CompletedPomodoros,
		Completed:          t.Completed,
	}
}

// syncTasks diffs tasks against the last mirrored list. Progress is saved
// after every request so a retry resumes where the failure happened. A
// request the gateway refuses outright is logged and skipped so the rest of
// the list still goes through.
func (m *Mirror) syncTasks(ctx context.Context, tasks []engine.Task, activeID string) error {
	present := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		present[t.ID] = true
		in := taskInput(t)
		rt, ok := m.st.Tasks[t.ID]
		switch {
		case !ok || (rt.Rejected && rt.Input != in):
			created, err := m.gw.CreateTask(ctx, m.opts.UserID, in)
			if err != nil {
				if retryable(err) {
					return fmt.Errorf("create task %s: %w", t.ID, err)
				}
				m.rejected("create task "+t.ID, err)
				m.st.Tasks[t.ID] = remoteTask{Input: in, Rejected: true}
				break
			}
			m.st.Tasks[t.ID] = remoteTask{RemoteID: created.ID, Input: in}
			if t.ID == m.st.ActiveID {
				m.st.ActiveID = ""
			}
		case rt.Rejected, rt.Input == in:
			continue
		default:
			if _, err := m.gw.UpdateTask(ctx, rt.RemoteID, in); err != nil {
				if errors.Is(err, client.ErrNotFound) {
					// Deleted remotely; recreate on the next attempt.
					delete(m.st.Tasks, t.ID)
					m.saveState()
					return fmt.Errorf("update task %s: %w", t.ID, err)
				}
				if retryable(err) {
					return fmt.Errorf("update task %s: %w", t.ID, err)
				}
				m.rejected("update task "+t.ID, err)
			}
			rt.Input = in
			m.st.Tasks[t.ID] = rt
		}
		m.saveState()
	}

	for id, rt := range m.st.Tasks {
		if present[id] {
			continue
		}
		if !rt.Rejected {
			err := m.gw.DeleteTask(ctx, rt.RemoteID)
			switch {
			case err == nil, errors.Is(err, client.ErrNotFound):
			case retryable(err):
				return fmt.Errorf("delete task %s: %w", id, err)
			default:
				m.rejected("delete task "+id, err)
			}
		}
		delete(m.st.Tasks, id)
		if m.st.ActiveID == id {
			m.st.ActiveID = ""
		}
		m.saveState()
	}

	// The gateway has no way to clear the active task, so only changes to a
	// new active task are sent.
	if activeID != "" && activeID != m.st.ActiveID {
		rt, ok := m.st.Tasks[activeID]
		if !ok || rt.Rejected {
			return nil
		}
		if _, err := m.gw.SetActiveTask(ctx, m.opts.UserID, rt.RemoteID); err != nil {
			if retryable(err) {
				return fmt.Errorf("set active task %s: %w", activeID, err)
			}
			m.rejected("set active task "+activeID, err)
		}
	}
	if activeID != m.st.ActiveID {
		m.st.ActiveID = activeID
		m.saveState()
	}
	return nil
}

// rejected records a single request the gateway refused.
func (m *Mirror) rejected(what string, err error) {
	metrics.MirrorDropped.WithLabelValues(opTasks.String(), "rejected").Inc()
	m.opts.Logger.Printf("%s rejected, skipping: %v", what, err)
}

func (m *Mirror) recordSession(ctx context.Context, h engine.HistoryEntry) error {
	in := client.SessionInput{
		Mode:        h.Mode.String(),
		Duration:    h.DurationMinutes,
		CompletedAt: h.Timestamp,
	}
	if rt, ok := m.st.Tasks[h.TaskID]; ok && h.TaskID != "" && !rt.Rejected {
		id := rt.RemoteID
		in.TaskID = &id
	}
	if in.Duration < 1 {
		// The gateway requires a positive duration.
		in.Duration = 1
	}
	_, err := m.gw.RecordSession(ctx, m.opts.UserID, in)
	return err
}

func (m *Mirror) saveState() {
	if m.meta == nil {
		return
	}
	if err := m.meta.Set(StateKey, m.st); err != nil {
		m.opts.Logger.Printf("save mirror state: %v", err)
	}
}

// RemoteID returns the gateway id mirrored for a local task. It is only
// meaningful once Close has returned.
func (m *Mirror) RemoteID(localID string) (int64, bool) {
	rt, ok := m.st.Tasks[localID]
	if !ok || rt.Rejected {
		return 0, false
	}
	return rt.RemoteID, true
}
