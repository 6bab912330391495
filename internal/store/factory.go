package store

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and locates a relational backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the Repository named by opts.Backend. An empty backend
// means SQLite at the default path.
func Open(ctx context.Context, opts Options) (Repository, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("determine sqlite path: %w", err)
			}
			path = p
		}
		return New(path)

	case BackendPostgres:
		if strings.TrimSpace(opts.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres backend requires a connection string")
		}
		return NewPostgres(ctx, opts.PostgresDSN)

	default:
		return nil, fmt.Errorf("unknown storage backend %q, expected %q or %q", backend, BackendSQLite, BackendPostgres)
	}
}
