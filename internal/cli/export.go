package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/export"
	"github.com/sadopc/pomo/internal/localstore"
)

var (
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default pomo-export-DATE.<format>)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the local session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "csv" && format != "json" {
			return fmt.Errorf("unknown format %q, expected csv or json", exportFormat)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		local := localstore.New(cfg.Storage.Dir)
		history, err := local.LoadHistory()
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		tasks, _, err := local.LoadTasks()
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(".", fmt.Sprintf("pomo-export-%s.%s", time.Now().Format("2006-01-02"), format))
		}

		if format == "json" {
			err = export.ToJSON(history, tasks, path)
		} else {
			err = export.ToCSV(history, tasks, path)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d sessions to %s\n", len(history), path)
		return nil
	},
}
