// Package export writes session history and tasks to CSV and JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/pomo/internal/engine"
)

// taskNames maps task ids to names for entries recorded without a name.
func taskNames(tasks []engine.Task) map[string]string {
	names := make(map[string]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}
	return names
}

func entryTaskName(h engine.HistoryEntry, names map[string]string) string {
	if h.TaskName != "" {
		return h.TaskName
	}
	if h.TaskID == "" {
		return ""
	}
	if name, ok := names[h.TaskID]; ok {
		return name
	}
	return "Unknown"
}

// ToCSV writes one row per history entry.
func ToCSV(history []engine.HistoryEntry, tasks []engine.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Completed", "Mode", "Duration (min)", "Duration", "Task ID", "Task"}); err != nil {
		return err
	}

	names := taskNames(tasks)
	for _, h := range history {
		row := []string{
			h.Timestamp.Local().Format(time.RFC3339),
			h.Mode.String(),
			strconv.Itoa(h.DurationMinutes),
			formatDuration(h.DurationMinutes),
			h.TaskID,
			entryTaskName(h, names),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}
