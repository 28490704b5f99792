// Package testhelpers starts throwaway backing services in Docker for
// integration tests.
//
// Tests using it should be guarded by the "integration" build tag and skip in
// short mode:
//
//	func TestPostgresRepository(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("Skipping container-based test in short mode")
//	    }
//	    url := testhelpers.StartPostgres(t)
//	    ...
//	}
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 2 * time.Minute

// StartPostgres runs postgres:16-alpine and returns a lib/pq connection URL.
func StartPostgres(t *testing.T) string {
	t.Helper()
	_, host, port := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "pocketflow",
			"POSTGRES_PASSWORD": "pocketflow",
			"POSTGRES_DB":       "pocketflow",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout),
	}, "5432/tcp")
	return fmt.Sprintf("postgres://pocketflow:pocketflow@%s:%s/pocketflow?sslmode=disable", host, port)
}

// StartMongo runs mongo:7 and returns a connection URI.
func StartMongo(t *testing.T) string {
	t.Helper()
	_, host, port := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(startupTimeout),
	}, "27017/tcp")
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}

// StartRabbitMQ runs rabbitmq:3-alpine and returns an AMQP URL.
func StartRabbitMQ(t *testing.T) string {
	t.Helper()
	_, host, port := start(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(startupTimeout),
	}, "5672/tcp")
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port)
}

func start(t *testing.T, req testcontainers.ContainerRequest, exposed nat.Port) (testcontainers.Container, string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s: %v", req.Image, err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host for %s: %v", req.Image, err)
	}
	port, err := c.MappedPort(ctx, exposed)
	if err != nil {
		t.Fatalf("Failed to get mapped port for %s: %v", req.Image, err)
	}
	return c, host, port.Port()
}
