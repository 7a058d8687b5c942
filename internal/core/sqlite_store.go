package core

import "hatchery/internal/infra/persistence/sqlite"

// NewSQLiteStore opens a registry persisted to the sqlite file at path. An
// empty path selects hatchery.db in the working directory.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
