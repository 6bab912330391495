package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTaskNameLength is the longest task name, in characters, the engine and
// the gateway accept.
const MaxTaskNameLength = 200

func nextTaskID(tasks []Task) int64 {
	var max int64
	for _, t := range tasks {
		if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func (e *Engine) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.tasks {
		if e.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) saveTasks() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveTasks(e.Tasks(), e.activeID); err != nil {
		e.warn("save tasks", err)
	}
}

// Tasks returns a copy of the task list in insertion order.
func (e *Engine) Tasks() []Task {
	out := make([]Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// Task looks up a task by id.
func (e *Engine) Task(id string) (Task, bool) {
	idx := e.indexOf(id)
	if idx < 0 {
		return Task{}, false
	}
	return e.tasks[idx], true
}

// AddTask appends a new task. The name is trimmed, must not be empty and is
// limited to MaxTaskNameLength characters; the estimate must be at least 1.
func (e *Engine) AddTask(name string, estimate int) (Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Task{}, invalid("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxTaskNameLength {
		return Task{}, invalid("name", fmt.Sprintf("must be at most %d characters", MaxTaskNameLength))
	}
	if estimate < 1 {
		return Task{}, invalid("estimatedPomodoros", "must be at least 1")
	}
	t := Task{
		ID:                 strconv.FormatInt(e.nextID, 10),
		Name:               name,
		EstimatedPomodoros: estimate,
		CreatedAt:          e.now().UTC(),
	}
	e.nextID++
	e.tasks = append(e.tasks, t)
	e.saveTasks()
	return t, nil
}

// ToggleCompletion flips a task's completed flag.
func (e *Engine) ToggleCompletion(id string) (Task, bool) {
	idx := e.indexOf(id)
	if idx < 0 {
		return Task{}, false
	}
	e.tasks[idx].Completed = !e.tasks[idx].Completed
	e.saveTasks()
	return e.tasks[idx], true
}

// DeleteTask removes a task and clears it as the active task.
func (e *Engine) DeleteTask(id string) bool {
	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}
	e.tasks = append(e.tasks[:idx], e.tasks[idx+1:]...)
	if e.activeID == id {
		e.activeID = ""
	}
	e.saveTasks()
	return true
}

// SetActiveTask marks id as the task future Work intervals credit.
func (e *Engine) SetActiveTask(id string) bool {
	if e.indexOf(id) < 0 {
		return false
	}
	e.activeID = id
	e.saveTasks()
	return true
}

// ClearActiveTask leaves no task active.
func (e *Engine) ClearActiveTask() {
	if e.activeID == "" {
		return
	}
	e.activeID = ""
	e.saveTasks()
}

// ActiveTask returns the active task. A dangling id reads as no task.
func (e *Engine) ActiveTask() (Task, bool) {
	return e.Task(e.activeID)
}

// ActiveTaskID returns the active id, or "" if it does not resolve.
func (e *Engine) ActiveTaskID() string {
	if e.indexOf(e.activeID) < 0 {
		return ""
	}
	return e.activeID
}
