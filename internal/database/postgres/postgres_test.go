//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/storetest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*config.DatabaseConfig, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	cleanup := func() {
		container.Terminate(ctx)
	}
	return cfg, cleanup
}

// resetTables empties every table and restores the sentinel rows.
func resetTables(t *testing.T, pool *Pool) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		"TRUNCATE album_files, albums, faces, files, geotags, geotag_areas, roots, folders, people, person_groups RESTART IDENTITY CASCADE",
		"INSERT INTO person_groups (id, name) VALUES (0, 'Ungrouped')",
		"INSERT INTO people (id, full_name) VALUES (0, 'Unknown Person')",
	}
	for _, stmt := range stmts {
		if _, err := pool.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("reset tables: %v", err)
		}
	}
}

func TestStoreConformance(t *testing.T) {
	cfg, cleanup := setupTestContainer(t)
	if cfg == nil {
		return
	}
	defer cleanup()

	storetest.Run(t, func(t *testing.T) database.Store {
		s, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		resetTables(t, &Pool{db: s.DB()})
		return s
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg, cleanup := setupTestContainer(t)
	if cfg == nil {
		return
	}
	defer cleanup()

	pool, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	first, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected migrations to be applied on an empty database")
	}
	second, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected no pending migrations, got %v", second)
	}
}
