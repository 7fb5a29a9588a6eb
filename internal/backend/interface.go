package backend

import (
	"context"
	"time"

	"finease/internal/amqp"
	"finease/internal/store"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult is the process-wide store plus the optional change-event
// client. Events is nil when AMQP is disabled or unreachable at startup.
type BackendResult struct {
	Type    BackendType
	Store   store.TransactionStore
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// MongoDB
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	ConnectTimeout  time.Duration

	// SQLite
	SQLiteDBPath string

	// Memory; empty means start empty
	MemorySeedFile string

	// Change events; empty URL disables them
	AMQPURL      string
	AMQPExchange string
}

type BackendType string

const (
	MongoBackend  BackendType = "mongo"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MongoBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
