package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/client"
	"github.com/sadopc/pomo/internal/config"
	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/localstore"
	"github.com/sadopc/pomo/internal/store"
)

var (
	historyLimit     int
	historyFromStore bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show (1-50)")
	historyCmd.Flags().BoolVar(&historyFromStore, "store", false, "Read the relational store that serve uses instead of this device's data")
	rootCmd.AddCommand(historyCmd)
}

// historyRow is one printed session, whichever store it came from.
type historyRow struct {
	At       time.Time
	Mode     string
	Duration int
	Task     string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sessions, newest first",
	Long: `Show recent sessions, newest first.

Sessions come from the gateway when gateway.url is set, otherwise from this
device's local data. --store reads the relational store configured by
storage.backend, which is where "pomo serve" keeps sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 1 || historyLimit > store.DefaultSessionLimit {
			return fmt.Errorf("--limit must be between 1 and %d", store.DefaultSessionLimit)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rows, err := loadHistory(cmd.Context(), cfg, historyLimit, historyFromStore)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No sessions yet.")
			return nil
		}
		return printHistory(os.Stdout, rows)
	},
}

// loadHistory reads from the relational store when fromStore is set, else
// from the gateway when one is configured, else from the local data the TUI
// writes.
func loadHistory(ctx context.Context, cfg config.Config, limit int, fromStore bool) ([]historyRow, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case fromStore:
		repo, err := openRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		sessions, err := repo.ListSessions(ctx, cfg.User.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		return sessionRows(sessions), nil

	case cfg.Gateway.URL != "":
		sessions, err := client.New(cfg.Gateway.URL).ListSessions(ctx, cfg.User.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		rows := make([]historyRow, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, historyRow{At: s.CompletedAt, Mode: s.Mode, Duration: s.Duration, Task: deref(s.TaskName)})
		}
		return rows, nil

	default:
		entries, err := localstore.New(cfg.Storage.Dir).LoadHistory()
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		var rows []historyRow
		for _, h := range engine.Recent(entries, limit) {
			rows = append(rows, historyRow{At: h.Timestamp, Mode: h.Mode.String(), Duration: h.DurationMinutes, Task: h.TaskName})
		}
		return rows, nil
	}
}

func sessionRows(sessions []store.Session) []historyRow {
	rows := make([]historyRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, historyRow{At: s.CompletedAt, Mode: s.Mode, Duration: s.Duration, Task: deref(s.TaskName)})
	}
	return rows
}

func printHistory(w io.Writer, rows []historyRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPLETED\tMODE\tMIN\tTASK")
	for _, r := range rows {
		task := r.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.At.Local().Format("2006-01-02 15:04"), r.Mode, r.Duration, task)
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
