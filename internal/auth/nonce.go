package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"

	"hatchery/pkg/domain"
)

// NonceWindow is how far below an account's highest nonce a fresh nonce may
// still be accepted.
const NonceWindow = 1000

var (
	// ErrNonceUsed reports a replayed nonce.
	ErrNonceUsed = errors.New("nonce has already been used")
	// ErrNonceTooOld reports a nonce that fell out of the acceptance window.
	ErrNonceTooOld = errors.New("nonce is too old")
)

// NonceStore consumes per-account nonces.
type NonceStore interface {
	UseNonce(ctx context.Context, account domain.AccountID, nonce uint64) error
}

// MemoryNonceStore keeps used nonces in process memory.
type MemoryNonceStore struct {
	mu   sync.Mutex
	used map[domain.AccountID]map[uint64]struct{}
	max  map[domain.AccountID]uint64
}

// NewMemoryNonceStore returns an empty store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		used: make(map[domain.AccountID]map[uint64]struct{}),
		max:  make(map[domain.AccountID]uint64),
	}
}

// UseNonce marks nonce as used for account.
func (s *MemoryNonceStore) UseNonce(_ context.Context, account domain.AccountID, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := s.max[account]
	if nonce < highest && highest-nonce >= NonceWindow {
		return eris.Wrapf(ErrNonceTooOld, "account %q nonce %d below %d", account, nonce, highest)
	}
	seen := s.used[account]
	if seen == nil {
		seen = make(map[uint64]struct{})
		s.used[account] = seen
	}
	if _, dup := seen[nonce]; dup {
		return eris.Wrapf(ErrNonceUsed, "account %q nonce %d", account, nonce)
	}
	seen[nonce] = struct{}{}
	if nonce > highest {
		s.max[account] = nonce
		for old := range seen {
			if nonce-old >= NonceWindow {
				delete(seen, old)
			}
		}
	}
	return nil
}
