package tcnats

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/checkpoint-racer/testsupport/tccontainer"
)

// SetupTestServer returns the url of a JetStream enabled nats server.
// TESTNATS_URL points to an external server, otherwise a container is used.
func SetupTestServer(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TESTNATS_URL"); url != "" {
		return url
	}
	port := nat.Port("4222/tcp")
	addrs, err := tccontainer.Start(context.Background(), "nats:2.10",
		[]nat.Port{port},
		tccontainer.WithName("checkpoint-racer-nats-test"),
		tccontainer.WithCmd("-js"),
		tccontainer.WithWaitFor(wait.ForLog("Server is ready").
			WithStartupTimeout(10*time.Second)),
	)
	if err != nil {
		t.Skipf("nats container not available: %v", err)
	}
	return fmt.Sprintf("nats://%s", addrs[0])
}
