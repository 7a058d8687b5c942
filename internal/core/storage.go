package core

import (
	"fmt"

	"hatchery/internal/infra/persistence/memory"
	"hatchery/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and parameterizes the registry backend. Field tags
// are read by the config package with the HATCHERY_ prefix.
type StorageConfig struct {
	Driver      StorageDriver `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string        `env:"SQLITE_PATH"`
	PostgresDSN string        `env:"POSTGRES_DSN"`
}

// OpenPersistentStore opens the backend named by cfg.Driver, defaulting to
// sqlite when unset.
func OpenPersistentStore(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return NewPostgresStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// NewMemoryStore constructs an in-memory store backed by engine.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}
