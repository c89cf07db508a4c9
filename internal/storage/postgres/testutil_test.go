package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One container serves the whole package; tests truncate between runs.
var (
	sharedOnce      sync.Once
	sharedContainer *postgres.PostgresContainer
	sharedPool      *Pool
	sharedErr       error
)

// Tables emptied before every test.
var testTables = []string{"token_metadata", "recent_addresses"}

func TestMain(m *testing.M) {
	flag.Parse()
	code := m.Run()

	if sharedPool != nil {
		sharedPool.Close()
	}
	if sharedContainer != nil {
		if err := sharedContainer.Terminate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "terminate postgres container: %v\n", err)
		}
	}
	os.Exit(code)
}

// setupTestDB returns a pool to an empty, migrated database. Skipped with -short.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	sharedOnce.Do(func() {
		sharedContainer, sharedPool, sharedErr = startPostgres(context.Background())
	})
	require.NoError(t, sharedErr, "failed to start postgres")

	ctx := context.Background()
	for _, table := range testTables {
		_, err := sharedPool.Exec(ctx, "TRUNCATE "+table)
		require.NoError(t, err, "truncate %s", table)
	}
	return sharedPool, func() {}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, *Pool, error) {
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("inspector"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, nil, fmt.Errorf("connection string: %w", err)
	}
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return container, nil, err
	}
	if err := applySchema(ctx, pool); err != nil {
		return container, pool, err
	}
	return container, pool, nil
}

// applySchema executes the migration files directly; the migrations package
// imports this one, so it cannot be used here.
func applySchema(ctx context.Context, pool *Pool) error {
	_, self, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(self), "..", "migrations", "postgres")

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
