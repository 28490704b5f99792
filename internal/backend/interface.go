package backend

import (
	"context"
	"slices"

	"pocketflow/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func(ctx context.Context) error

// BackendResult contains the record service and its cleanup function
type BackendResult struct {
	Service *services.RecordService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a record service on the store selected by config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL string

	// MongoDB specific
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Optional change-event publishing, shared by every store
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of record store
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}
