package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/pomo/internal/client"
	"github.com/sadopc/pomo/internal/config"
	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/localstore"
	"github.com/sadopc/pomo/internal/mirror"
	"github.com/sadopc/pomo/internal/store"
)

// loadConfig reads the config and mints the user id on first run.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if _, err := config.EnsureUserID(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openLogFile returns a logger writing to the configured log file, for
// commands that own the terminal. The returned closer is never nil.
func openLogFile(cfg config.Config, prefix string) (*log.Logger, io.Closer, error) {
	if cfg.Logging.File == "" {
		return log.New(io.Discard, "", 0), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, prefix, log.LstdFlags), f, nil
}

func stderrLogger(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

// localState is the engine's store plus the cleanup it needs.
type localState struct {
	store  engine.Store
	mirror *mirror.Mirror
}

// openLocal returns the engine store for the data directory, wrapped in a
// gateway mirror when gateway.url is set.
func openLocal(cfg config.Config, logger *log.Logger) localState {
	local := localstore.New(cfg.Storage.Dir)
	if cfg.Gateway.URL == "" {
		return localState{store: local}
	}
	m := mirror.New(local, client.New(cfg.Gateway.URL), localstore.NewKV(cfg.Storage.Dir), mirror.Options{
		UserID:     cfg.User.ID,
		MaxRetries: cfg.Gateway.RetryMax,
		BaseDelay:  time.Duration(cfg.Gateway.RetryBaseMS) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Gateway.RetryMaxMS) * time.Millisecond,
		QueueSize:  cfg.Gateway.QueueSize,
		Logger:     log.New(logger.Writer(), "[mirror] ", log.LstdFlags),
	})
	return localState{store: m, mirror: m}
}

// close drains pending gateway writes for a few seconds.
func (l localState) close() error {
	if l.mirror == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.mirror.Close(ctx)
}

// openRepository opens the relational store named by the config.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, error) {
	repo, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return repo, nil
}
