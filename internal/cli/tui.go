package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/tui"
)

func init() {
	rootCmd.AddCommand(tuiCmd)
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI (default)",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, logFile, err := openLogFile(cfg, "[tui] ")
	if err != nil {
		return err
	}
	defer logFile.Close()

	local := openLocal(cfg, logger)
	defer func() {
		if err := local.close(); err != nil {
			logger.Printf("mirror shutdown: %v", err)
		}
	}()

	eng := engine.New(local.store)
	defer eng.Close()

	app := tui.NewApp(eng, tui.NewTerminalNotifier(os.Stdout, logger))
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
