package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hatchery/internal/blob/core"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "archive")
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Root() != root || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %s %s", store.Root(), store.Driver())
	}
	info, err := store.Put(ctx, "snapshots/1.json", strings.NewReader(`{"counter":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"counter": "1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != int64(len(`{"counter":1}`)) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "snapshots", "1.json.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}

	got, rc, err := store.Get(ctx, "snapshots/1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"counter":1}` || got.ETag != info.ETag || got.Metadata["counter"] != "1" {
		t.Fatalf("round trip mismatch %q %+v", body, got)
	}

	if _, err := store.Put(ctx, "snapshots/2.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/1.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	removed, err := store.Delete(ctx, "snapshots/1.json")
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if removed, _ := store.Delete(ctx, "snapshots/1.json"); removed {
		t.Fatalf("second delete must report missing")
	}
	if _, err := store.Head(ctx, "snapshots/1.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
	if _, err := store.Put(ctx, "dup", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "dup", strings.NewReader("y"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}
