package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pomo/internal/engine"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Tasks      []jsonTask  `json:"tasks"`
	Sessions   []jsonEntry `json:"sessions"`
}

type jsonTask struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	EstimatedPomodoros int    `json:"estimated_pomodoros"`
	CompletedPomodoros int    `json:"completed_pomodoros"`
	Completed          bool   `json:"completed"`
	CreatedAt          string `json:"created_at"`
}

type jsonEntry struct {
	CompletedAt     string `json:"completed_at"`
	Mode            string `json:"mode"`
	DurationMinutes int    `json:"duration_minutes"`
	Duration        string `json:"duration"`
	TaskID          string `json:"task_id,omitempty"`
	Task            string `json:"task,omitempty"`
}

// ToJSON writes tasks and history as one indented document.
func ToJSON(history []engine.HistoryEntry, tasks []engine.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(history),
	}

	for _, t := range tasks {
		export.Tasks = append(export.Tasks, jsonTask{
			ID:                 t.ID,
			Name:               t.Name,
			EstimatedPomodoros: t.EstimatedPomodoros,
			CompletedPomodoros: t.CompletedPomodoros,
			Completed:          t.Completed,
			CreatedAt:          t.CreatedAt.Local().Format(time.RFC3339),
		})
	}

	names := taskNames(tasks)
	for _, h := range history {
		export.Sessions = append(export.Sessions, jsonEntry{
			CompletedAt:     h.Timestamp.Local().Format(time.RFC3339),
			Mode:            h.Mode.String(),
			DurationMinutes: h.DurationMinutes,
			Duration:        formatDuration(h.DurationMinutes),
			TaskID:          h.TaskID,
			Task:            entryTaskName(h, names),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
