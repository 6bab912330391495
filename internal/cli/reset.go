package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/config"
	"github.com/sadopc/pomo/internal/localstore"
	"github.com/sadopc/pomo/internal/mirror"
)

var resetConfirmed bool

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "Confirm deleting local data")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete this device's settings, tasks and history",
	Long: `Delete the settings, tasks and history kept on this device, along with
the gateway mirror's bookkeeping. Data already on the gateway is untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return fmt.Errorf("refusing to delete local data without --yes")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := resetLocal(cfg.Storage.Dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared local data in %s\n", cfg.Storage.Dir)
		return nil
	},
}

func resetLocal(dir string) error {
	if err := localstore.New(dir).Clear(); err != nil {
		return fmt.Errorf("clear local data: %w", err)
	}
	if err := localstore.NewKV(dir).Delete(mirror.StateKey); err != nil {
		return fmt.Errorf("clear mirror state: %w", err)
	}
	return nil
}
