package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomo/internal/api"
	"github.com/sadopc/pomo/internal/mcpserver"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides api.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides api.port)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST persistence gateway",
	Long: `Serve the settings, tasks and session history REST API backed by the
configured relational store. /metrics and /mcp are mounted when enabled
in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveHost != "" {
			cfg.API.Host = serveHost
		}
		if servePort != 0 {
			cfg.API.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		srv := api.NewServer(repo)
		srv.SetLogger(stderrLogger("[api] "))
		srv.SetCORSOrigins(cfg.API.CORSOrigins)
		if cfg.API.Metrics {
			srv.EnableMetrics()
		}
		if strings.EqualFold(cfg.Logging.Level, "debug") {
			srv.EnableRequestLog()
		}
		if cfg.API.MCP {
			mcp := mcpserver.NewServer(repo, cfg.User.ID, rootCmd.Version)
			srv.SetMCPHandler(server.NewStreamableHTTPServer(mcp))
		}

		if err := srv.Run(ctx, cfg.API.Addr()); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}
