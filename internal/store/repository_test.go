package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runRepositoryTests exercises the Repository contract against any backend.
func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("SettingsDefaultsInserted", func(t *testing.T) {
		r := newRepo(t)
		st, err := r.GetSettings(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		want := DefaultSettings("alice")
		if st.WorkDuration != want.WorkDuration || st.ShortBreakDuration != want.ShortBreakDuration ||
			st.LongBreakDuration != want.LongBreakDuration || st.SessionsBeforeLongBreak != want.SessionsBeforeLongBreak {
			t.Fatalf("expected defaults, got %+v", st)
		}
		// Second read returns the stored row.
		if _, err := r.GetSettings(ctx, "alice"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("SettingsUpsert", func(t *testing.T) {
		r := newRepo(t)
		in := Settings{UserID: "bob", WorkDuration: 50, ShortBreakDuration: 10, LongBreakDuration: 30, SessionsBeforeLongBreak: 2}
		if _, err := r.SaveSettings(ctx, in); err != nil {
			t.Fatal(err)
		}
		in.WorkDuration = 45
		if _, err := r.SaveSettings(ctx, in); err != nil {
			t.Fatal(err)
		}
		got, err := r.GetSettings(ctx, "bob")
		if err != nil {
			t.Fatal(err)
		}
		if got.WorkDuration != 45 || got.SessionsBeforeLongBreak != 2 {
			t.Fatalf("unexpected settings %+v", got)
		}
		other, _ := r.GetSettings(ctx, "carol")
		if other.WorkDuration != DefaultWorkMinutes {
			t.Fatal("settings leaked between users")
		}
	})

	t.Run("TaskCRUD", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateTask(ctx, Task{UserID: "u", Name: "write docs", EstimatedPomodoros: 3})
		if err != nil {
			t.Fatal(err)
		}
		if created.ID == 0 || created.Name != "write docs" || created.IsActive || created.CreatedAt.IsZero() {
			t.Fatalf("unexpected created task %+v", created)
		}

		created.CompletedPomodoros = 2
		created.Completed = true
		updated, err := r.UpdateTask(ctx, created)
		if err != nil {
			t.Fatal(err)
		}
		if updated.CompletedPomodoros != 2 || !updated.Completed {
			t.Fatalf("update not applied: %+v", updated)
		}

		if err := r.DeleteTask(ctx, created.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := r.GetTask(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := r.DeleteTask(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := r.UpdateTask(ctx, created); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
	})

	t.Run("ListTasksNewestFirst", func(t *testing.T) {
		r := newRepo(t)
		a, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "a", EstimatedPomodoros: 1})
		b, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "b", EstimatedPomodoros: 1})
		r.CreateTask(ctx, Task{UserID: "other", Name: "c", EstimatedPomodoros: 1})

		tasks, err := r.ListTasks(ctx, "u")
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 2 || tasks[0].ID != b.ID || tasks[1].ID != a.ID {
			t.Fatalf("unexpected order %+v", tasks)
		}
		empty, err := r.ListTasks(ctx, "nobody")
		if err != nil || empty == nil || len(empty) != 0 {
			t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
		}
	})

	t.Run("SetActiveTaskExclusive", func(t *testing.T) {
		r := newRepo(t)
		a, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "a", EstimatedPomodoros: 1})
		b, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "b", EstimatedPomodoros: 1})
		other, _ := r.CreateTask(ctx, Task{UserID: "v", Name: "x", EstimatedPomodoros: 1})
		if _, err := r.SetActiveTask(ctx, "v", other.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := r.SetActiveTask(ctx, "u", a.ID); err != nil {
			t.Fatal(err)
		}
		got, err := r.SetActiveTask(ctx, "u", b.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.IsActive {
			t.Fatal("returned task not active")
		}

		tasks, _ := r.ListTasks(ctx, "u")
		active := 0
		for _, task := range tasks {
			if task.IsActive {
				active++
				if task.ID != b.ID {
					t.Fatalf("wrong active task %d", task.ID)
				}
			}
		}
		if active != 1 {
			t.Fatalf("expected exactly one active task, got %d", active)
		}
		if o, _ := r.GetTask(ctx, other.ID); !o.IsActive {
			t.Fatal("other user's active task was cleared")
		}
	})

	t.Run("SetActiveTaskUnknownKeepsState", func(t *testing.T) {
		r := newRepo(t)
		a, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "a", EstimatedPomodoros: 1})
		r.SetActiveTask(ctx, "u", a.ID)
		if _, err := r.SetActiveTask(ctx, "u", a.ID+1000); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		got, _ := r.GetTask(ctx, a.ID)
		if !got.IsActive {
			t.Fatal("failed call cleared the active flag")
		}
		foreign, _ := r.CreateTask(ctx, Task{UserID: "v", Name: "f", EstimatedPomodoros: 1})
		if _, err := r.SetActiveTask(ctx, "u", foreign.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for another user's task, got %v", err)
		}
	})

	t.Run("SessionsJoinAndLimit", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.CreateTask(ctx, Task{UserID: "u", Name: "focus", EstimatedPomodoros: 4})
		base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		for i := 0; i < 55; i++ {
			s := Session{UserID: "u", Mode: "work", Duration: 25, CompletedAt: base.Add(time.Duration(i) * time.Minute)}
			if i%2 == 0 {
				s.TaskID = &task.ID
			}
			if _, err := r.RecordSession(ctx, s); err != nil {
				t.Fatal(err)
			}
		}

		sessions, err := r.ListSessions(ctx, "u", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != DefaultSessionLimit {
			t.Fatalf("expected %d sessions, got %d", DefaultSessionLimit, len(sessions))
		}
		if !sessions[0].CompletedAt.Equal(base.Add(54 * time.Minute)) {
			t.Fatalf("expected newest first, got %v", sessions[0].CompletedAt)
		}
		if sessions[0].TaskName == nil || *sessions[0].TaskName != "focus" {
			t.Fatal("expected joined task name")
		}
		if sessions[1].TaskName != nil {
			t.Fatal("expected nil task name for session without task")
		}

		// Deleting the task keeps its sessions but drops the link.
		if err := r.DeleteTask(ctx, task.ID); err != nil {
			t.Fatal(err)
		}
		sessions, _ = r.ListSessions(ctx, "u", 5)
		if len(sessions) != 5 || sessions[0].TaskID != nil || sessions[0].TaskName != nil {
			t.Fatalf("unexpected sessions after delete %+v", sessions[0])
		}
	})

	t.Run("SessionSummary", func(t *testing.T) {
		r := newRepo(t)
		day := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
		r.RecordSession(ctx, Session{UserID: "u", Mode: "work", Duration: 25, CompletedAt: day})
		r.RecordSession(ctx, Session{UserID: "u", Mode: "work", Duration: 25, CompletedAt: day.Add(time.Hour)})
		r.RecordSession(ctx, Session{UserID: "u", Mode: "shortBreak", Duration: 5, CompletedAt: day.Add(30 * time.Minute)})
		r.RecordSession(ctx, Session{UserID: "u", Mode: "work", Duration: 25, CompletedAt: day.AddDate(0, 0, 1)})

		sum, err := r.SessionSummary(ctx, "u", day.Add(-9*time.Hour), day.Add(15*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(sum) != 2 {
			t.Fatalf("expected 2 rows, got %+v", sum)
		}
		for _, s := range sum {
			if s.Date != "2024-06-03" {
				t.Fatalf("unexpected date %q", s.Date)
			}
			if s.Mode == "work" && (s.TotalMinutes != 50 || s.Count != 2) {
				t.Fatalf("unexpected work row %+v", s)
			}
		}
	})
}
