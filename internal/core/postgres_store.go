package core

import "hatchery/internal/infra/persistence/postgres"

// NewPostgresStore opens a registry persisted to the PostgreSQL server at dsn.
func NewPostgresStore(dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}
