package store

import (
	"context"
	"os/exec"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// dockerAvailable probes the Docker daemon; testcontainers-go panics
// when Docker is missing.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// newTestPostgres starts one PostgreSQL container for the whole test and
// returns its connection string.
func newTestPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration tests in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pomo"),
		postgres.WithUsername("pomo"),
		postgres.WithPassword("pomo"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn
}

func TestPostgresRepository(t *testing.T) {
	dsn := newTestPostgres(t)
	ctx := context.Background()

	runRepositoryTests(t, func(t *testing.T) Repository {
		p, err := NewPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("new postgres store: %v", err)
		}
		// Subtests share one database, so start each from empty tables.
		if _, err := p.pool.Exec(ctx, `TRUNCATE session_history, tasks, user_settings RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { p.Close() })
		return p
	})
}

func TestOpenPostgres(t *testing.T) {
	dsn := newTestPostgres(t)
	r, err := Open(context.Background(), Options{Backend: "postgres", PostgresDSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, ok := r.(*PostgresStore); !ok {
		t.Fatalf("expected *PostgresStore, got %T", r)
	}
}
