package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"hatchery/internal/infra/persistence/memory"
	"hatchery/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(StorageConfig{Driver: StorageMemory}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := OpenPersistentStore(StorageConfig{SQLitePath: path}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	if sqliteStore.Path() != path {
		t.Fatalf("expected path %s, got %s", path, sqliteStore.Path())
	}

	svc := NewService(store)
	if _, err := svc.Create(context.Background(), "alice"); err != nil {
		t.Fatalf("create through sqlite: %v", err)
	}
	_ = sqliteStore.Close()

	reopened, err := NewSQLiteStore(path, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if reopened.CreatureCount() != 1 {
		t.Fatalf("expected persisted counter 1, got %d", reopened.CreatureCount())
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	_, err := OpenPersistentStore(StorageConfig{Driver: "etcd"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}
