//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/checkpoint-racer/testsupport/tccontainer"
)

// SetupTestDB returns the url of a postgres database usable by the test.
// TESTDB_URL points to an external database, otherwise a container is used.
func SetupTestDB(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TESTDB_URL"); url != "" {
		return url
	}
	port := nat.Port("5432/tcp")
	addrs, err := tccontainer.Start(context.Background(), "postgres:15",
		[]nat.Port{port},
		tccontainer.WithName("checkpoint-racer-test"),
		tccontainer.WithCmd("postgres", "-c", "fsync=off"),
		tccontainer.WithEnv("POSTGRES_USER", "postgres"),
		tccontainer.WithEnv("POSTGRES_PASSWORD", "password"),
		tccontainer.WithEnv("POSTGRES_DB", "postgres"),
		tccontainer.WithWaitFor(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container not available: %v", err)
	}
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s/postgres", addrs[0])
	clearOnCleanup(t, dbURL)
	return dbURL
}

// the container is reused between test runs
func clearOnCleanup(t *testing.T, dbURL string) {
	t.Cleanup(func() {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return
		}
		defer pool.Close()
		ClearKVTable(pool)
	})
}

func ClearKVTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from kv_store")
}
