package cli

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Expose settings, tasks and session history as MCP tools on stdin and
stdout, for use by an MCP client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		repo, err := openRepository(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		srv := mcpserver.NewServer(repo, cfg.User.ID, rootCmd.Version)
		return server.ServeStdio(srv, server.WithErrorLogger(stderrLogger("[mcp] ")))
	},
}
