package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	connectionString := newTestPostgres(t, ctx)
	if err := Migrate(connectionString); err != nil {
		t.Fatalf("didn't want %q", err)
	}

	testRepositoryContract(t, func(t *testing.T) Repository {
		repo, err := NewPostgresRepository(ctx, PostgresConfig{URL: connectionString, MaxConns: 4})
		if err != nil {
			t.Fatalf("didn't want %q", err)
		}
		t.Cleanup(repo.Close)
		return repo
	})
}

func newTestPostgres(tb testing.TB, ctx context.Context) string {
	tb.Helper()

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "deployer",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	}

	c, err := testcontainers.GenericContainer(ctx, req)
	testcontainers.CleanupContainer(tb, c)
	if err != nil {
		tb.Skipf("docker unavailable: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/deployer?sslmode=disable", host, port.Port())
}
