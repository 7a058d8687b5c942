package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"hatchery/internal/blob"
	"hatchery/internal/infra/persistence/memory"
)

// Snapshot is the portable registry state written to archives.
type Snapshot = memory.Snapshot

// SnapshotSource is a store whose full state can be exported and replaced.
// The memory, sqlite and postgres stores all satisfy it.
type SnapshotSource interface {
	ExportState() Snapshot
	ImportState(Snapshot)
}

const (
	archivePrefix      = "snapshots/"
	archiveContentType = "application/json"
)

// Archiver writes registry snapshots to a blob store and restores them.
type Archiver struct {
	blobs  blob.Store
	source SnapshotSource
	now    func() time.Time
}

// NewArchiver pairs a snapshot source with the blob store holding its archives.
func NewArchiver(blobs blob.Store, source SnapshotSource) *Archiver {
	return &Archiver{
		blobs:  blobs,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Export stores the current state under a new snapshots/<unix-nanos>-<uuid>.json key.
func (a *Archiver) Export(ctx context.Context) (blob.Info, error) {
	snapshot := a.source.ExportState()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("%s%d-%s.json", archivePrefix, a.now().UnixNano(), uuid.NewString())
	info, err := a.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: archiveContentType,
		Metadata:    map[string]string{"counter": snapshot.Counter.String()},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot: %w", err)
	}
	return info, nil
}

// List returns the stored archives, oldest first.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.blobs.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	return out, nil
}

// Load reads and decodes the archive stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (Snapshot, error) {
	_, body, err := a.blobs.Get(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open archive %s: %w", key, err)
	}
	defer func() { _ = body.Close() }()
	payload, err := io.ReadAll(body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read archive %s: %w", key, err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode archive %s: %w", key, err)
	}
	return snapshot, nil
}

// Restore replaces the source's state with the archive under key. Sources
// backed by a database are flushed so the restored state is durable.
func (a *Archiver) Restore(ctx context.Context, key string) error {
	snapshot, err := a.Load(ctx, key)
	if err != nil {
		return err
	}
	a.source.ImportState(snapshot)
	if flusher, ok := a.source.(interface{ Flush(context.Context) error }); ok {
		if err := flusher.Flush(ctx); err != nil {
			return fmt.Errorf("flush restored state: %w", err)
		}
	}
	return nil
}
