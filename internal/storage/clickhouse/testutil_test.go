package clickhouse

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedOnce      sync.Once
	sharedContainer testcontainers.Container
	sharedConn      *Conn
	sharedErr       error
)

var testTables = []string{"trace_runs", "trace_transfers"}

func TestMain(m *testing.M) {
	flag.Parse()
	code := m.Run()

	if sharedConn != nil {
		sharedConn.Close()
	}
	if sharedContainer != nil {
		if err := sharedContainer.Terminate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "terminate clickhouse container: %v\n", err)
		}
	}
	os.Exit(code)
}

// setupTestDB returns a connection to an empty, migrated database shared by
// the package. Skipped with -short.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	sharedOnce.Do(func() {
		sharedContainer, sharedConn, sharedErr = startClickhouse(context.Background())
	})
	require.NoError(t, sharedErr, "failed to start clickhouse")

	ctx := context.Background()
	for _, table := range testTables {
		require.NoError(t, sharedConn.Exec(ctx, "TRUNCATE TABLE "+table), "truncate %s", table)
	}
	return sharedConn, func() {}
}

func startClickhouse(ctx context.Context) (testcontainers.Container, *Conn, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "inspector",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		return container, nil, fmt.Errorf("container endpoint: %w", err)
	}
	conn, err := NewConn(ctx, "clickhouse://"+endpoint+"/inspector")
	if err != nil {
		return container, nil, err
	}
	if err := applySchema(ctx, conn); err != nil {
		return container, conn, err
	}
	return container, conn, nil
}

// applySchema runs the migration files one statement at a time; the
// migrations package imports this one, so it cannot be used here.
func applySchema(ctx context.Context, conn *Conn) error {
	_, self, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(self), "..", "migrations", "clickhouse")

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations in %s", dir)
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var body strings.Builder
		for _, line := range strings.Split(string(content), "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "--") {
				body.WriteString(line)
				body.WriteByte('\n')
			}
		}
		for _, stmt := range strings.Split(body.String(), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
			}
		}
	}
	return nil
}
