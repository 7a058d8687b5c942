package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"hatchery/internal/auth"
	"hatchery/internal/blob"
	"hatchery/internal/command"
	core "hatchery/internal/core"
	"hatchery/internal/entropy"
	escrowmem "hatchery/internal/infra/escrow/memory"
	domain "hatchery/pkg/domain"
)

type archivableStore interface {
	core.PersistentStore
	core.SnapshotSource
}

func request(t *testing.T, account domain.AccountID, cmd command.Command) domain.Request {
	t.Helper()
	body, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	return domain.Request{Account: account, Namespace: "hatchery", Body: body}
}

// TestIntegrationSmoke drives the registry through the command dispatcher for
// each in-process store, then archives the result to every blob adapter and
// restores it into a fresh store.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	coreVariants := []struct {
		name string
		open func(t *testing.T) archivableStore
	}{
		{
			name: "memory-store",
			open: func(_ *testing.T) archivableStore {
				return core.NewMemoryStore(core.NewDefaultRulesEngine())
			},
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) archivableStore {
				path := filepath.Join(t.TempDir(), "hatchery.db")
				s, err := core.NewSQLiteStore(path, core.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("new sqlite store: %v", err)
				}
				return s
			},
		},
	}

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{
			name: "memory-blob",
			open: func(_ *testing.T) blob.Store { return blob.NewMemory() },
		},
		{
			name: "filesystem-blob",
			open: func(t *testing.T) blob.Store {
				fs, err := blob.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem blob: %v", err)
				}
				return fs
			},
		},
	}

	for _, cv := range coreVariants {
		t.Run(cv.name, func(t *testing.T) {
			store := cv.open(t)
			metricsRecorder := core.NewExpvarMetricsRecorder("")
			var traceBuffer bytes.Buffer
			tracer := core.NewJSONTracer(&traceBuffer)
			block := entropy.NewBlock(entropy.SeedFromHash([]byte("smoke")))
			svc := core.NewService(
				store,
				core.WithMetricsRecorder(metricsRecorder),
				core.WithTracer(tracer),
				core.WithEntropySource(block),
				core.WithEscrowLedger(escrowmem.NewLedger(map[domain.AccountID]domain.Balance{"alice": 50})),
			)
			dispatcher := command.NewDispatcher(svc, auth.Static{})

			for _, cmd := range []command.Command{
				{Kind: command.KindCreate},
				{Kind: command.KindCreate},
				{Kind: command.KindBreed, Parent1: 1, Parent2: 2},
				{Kind: command.KindTransfer, To: "bob", ID: 2},
				{Kind: command.KindCreate, Amount: 20},
			} {
				if _, err := dispatcher.Dispatch(ctx, request(t, "alice", cmd)); err != nil {
					t.Fatalf("dispatch %s: %v", cmd.Kind, err)
				}
			}
			if _, err := dispatcher.Dispatch(ctx, request(t, "alice", command.Command{Kind: command.KindCreate, Amount: 100})); !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Fatalf("expected insufficient funds, got %v", err)
			}
			if _, err := dispatcher.Dispatch(ctx, request(t, "", command.Command{Kind: command.KindCount})); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected unauthenticated, got %v", err)
			}

			resp, err := dispatcher.Dispatch(ctx, request(t, "bob", command.Command{Kind: command.KindOwnerOf, ID: 2}))
			if err != nil || !resp.Found || resp.Owner != "bob" {
				t.Fatalf("owner_of: %+v %v", resp, err)
			}
			resp, err = dispatcher.Dispatch(ctx, request(t, "alice", command.Command{Kind: command.KindList}))
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(resp.Creatures) != 3 || resp.Creatures[0].ID != 1 || resp.Creatures[1].ID != 3 || resp.Creatures[2].ID != 4 {
				t.Fatalf("unexpected alice listing %+v", resp.Creatures)
			}
			if store.CreatureCount() != 4 {
				t.Fatalf("expected counter 4 after rolled back funded create, got %d", store.CreatureCount())
			}

			stats := metricsRecorder.Stats()
			if stats[core.OpCreate].Success != 2 || stats[core.OpFundedCreate].Error != 1 {
				t.Fatalf("unexpected metrics %+v", stats)
			}
			if traceBuffer.Len() == 0 {
				t.Fatalf("expected trace exporter to emit spans")
			}

			for _, bv := range blobVariants {
				t.Run(bv.name, func(t *testing.T) {
					blobs := bv.open(t)
					info, err := core.NewArchiver(blobs, store).Export(ctx)
					if err != nil {
						t.Fatalf("export: %v", err)
					}
					restored := core.NewMemoryStore(core.NewDefaultRulesEngine())
					if err := core.NewArchiver(blobs, restored).Restore(ctx, info.Key); err != nil {
						t.Fatalf("restore: %v", err)
					}
					if restored.CreatureCount() != 4 {
						t.Fatalf("expected restored counter 4, got %d", restored.CreatureCount())
					}
					for id := domain.CreatureID(1); id <= 4; id++ {
						wantOwner, _ := store.OwnerOf(id)
						gotOwner, ok := restored.OwnerOf(id)
						if !ok || gotOwner != wantOwner {
							t.Fatalf("creature %d: owner %q, want %q", id, gotOwner, wantOwner)
						}
						want, _ := store.GetCreature(wantOwner, id)
						if got, _ := restored.GetCreature(gotOwner, id); got != want {
							t.Fatalf("creature %d genome mismatch", id)
						}
					}
				})
			}
		})
	}
}
