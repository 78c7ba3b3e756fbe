// Package tccontainer starts reusable service containers for integration tests.
package tccontainer

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Option func(req *testcontainers.ContainerRequest)

// WithWaitFor waits until all strategies are satisfied, at most one minute
func WithWaitFor(strategies ...wait.Strategy) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(time.Minute)
	}
}

func WithPort(port nat.Port) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.ExposedPorts = append(req.ExposedPorts, string(port))
	}
}

// WithName names the container. Named containers are reused between runs.
func WithName(name string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = name
	}
}

func WithEnv(key, value string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Env[key] = value
	}
}

func WithCmd(cmd ...string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Cmd = cmd
	}
}

// Start runs image and returns host:port for each requested port in order
func Start(ctx context.Context, image string, ports []nat.Port, opts ...Option) (
	[]string, error,
) {
	req := testcontainers.ContainerRequest{
		Image: image,
		Env:   map[string]string{},
	}
	for _, p := range ports {
		WithPort(p)(&req)
	}
	for _, opt := range opts {
		opt(&req)
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            req.Name != "",
		})
	if err != nil {
		return nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(ports))
	for _, p := range ports {
		mapped, err := container.MappedPort(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", p, err)
		}
		ret = append(ret, fmt.Sprintf("%s:%s", host, mapped.Port()))
	}
	return ret, nil
}
