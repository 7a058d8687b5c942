package core

import (
	"context"
	"sync"
	"time"

	"hatchery/internal/entropy"
	"hatchery/internal/infra/persistence/memory"
)

var testSeed = entropy.SeedFromHash([]byte("hatchery-test-block"))

// newTestService returns a service over a fresh in-memory store with the
// invariant rules and a fixed entropy block starting at index 0.
func newTestService(opts ...ServiceOption) (*Service, *memory.Store, *entropy.Block) {
	block := entropy.NewBlock(testSeed)
	store := NewMemoryStore(NewDefaultRulesEngine())
	all := append([]ServiceOption{WithEntropySource(block)}, opts...)
	return NewService(store, all...), store, block
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) record(prefix, msg string) {
	c.mu.Lock()
	c.calls = append(c.calls, prefix+msg)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("d:", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("i:", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("w:", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("e:", msg) }

func (c *captureLogger) has(call string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

type auditRecorderStub struct {
	entries []AuditEntry
}

func (r *auditRecorderStub) Record(_ context.Context, entry AuditEntry) {
	r.entries = append(r.entries, entry)
}

type clockOverrideStore struct {
	*memory.Store
	now time.Time
}

func (s clockOverrideStore) NowFunc() func() time.Time {
	return func() time.Time { return s.now }
}

func ids(list []OwnedCreature) []CreatureID {
	out := make([]CreatureID, 0, len(list))
	for _, entry := range list {
		out = append(out, entry.ID)
	}
	return out
}

func sameIDs(got, want []CreatureID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
