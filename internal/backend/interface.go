package backend

import (
	"context"

	"gastos/internal/amqp"
	"gastos/internal/storage"
)

// CleanupFunc releases what a backend opened.
type CleanupFunc func() error

// BackendResult is a ready repository plus the optional change publisher.
type BackendResult struct {
	Repository storage.Repository
	// Publisher is nil unless AMQP is configured for a shared backend.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string

	// Change events, shared backends only
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend seed files
	DataDirectory string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Shared reports whether several processes can see the same data.
func (bt BackendType) Shared() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
