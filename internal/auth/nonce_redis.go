package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"hatchery/pkg/domain"
)

// DefaultNonceKeyPrefix namespaces the per-account nonce sets.
const DefaultNonceKeyPrefix = "hatchery:nonce:"

// maxRedisNonce is the largest nonce whose float64 sorted-set score is
// distinct from every smaller nonce.
const maxRedisNonce = 1<<53 - 1

// RedisNonceStore records used nonces in one sorted set per account, scored
// by nonce. Sets are pruned to the acceptance window as they grow.
type RedisNonceStore struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	max   map[string]uint64
	count map[string]int
}

// NewRedisNonceStore returns a store over client. An empty prefix selects
// DefaultNonceKeyPrefix.
func NewRedisNonceStore(client *redis.Client, prefix string) *RedisNonceStore {
	if prefix == "" {
		prefix = DefaultNonceKeyPrefix
	}
	return &RedisNonceStore{
		client: client,
		prefix: prefix,
		max:    make(map[string]uint64),
		count:  make(map[string]int),
	}
}

// UseNonce atomically adds nonce to the account's set; a zero ZADD result
// means it was already present.
func (s *RedisNonceStore) UseNonce(ctx context.Context, account domain.AccountID, nonce uint64) error {
	if nonce > maxRedisNonce {
		return eris.Errorf("nonce %d is too large", nonce)
	}
	key := s.prefix + string(account)

	s.mu.Lock()
	defer s.mu.Unlock()

	highest, err := s.highest(ctx, key)
	if err != nil {
		return eris.Wrap(err, "failed to read highest nonce")
	}
	if nonce < highest && highest-nonce >= NonceWindow {
		return eris.Wrapf(ErrNonceTooOld, "account %q nonce %d below %d", account, nonce, highest)
	}
	added, err := s.client.ZAdd(ctx, key, redis.Z{Score: float64(nonce), Member: nonce}).Result()
	if err != nil {
		return eris.Wrap(err, "failed to add nonce")
	}
	if added == 0 {
		return eris.Wrapf(ErrNonceUsed, "account %q nonce %d", account, nonce)
	}
	s.max[key] = max(highest, nonce)
	s.count[key]++
	if s.count[key] > NonceWindow+NonceWindow/2 {
		s.prune(ctx, key)
	}
	return nil
}

func (s *RedisNonceStore) prune(ctx context.Context, key string) {
	highest := s.max[key]
	if highest < NonceWindow {
		return
	}
	removed, err := s.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", highest-NonceWindow)).Result()
	if err != nil {
		// a failed prune only leaves extra members behind
		return
	}
	s.count[key] -= int(removed)
}

func (s *RedisNonceStore) highest(ctx context.Context, key string) (uint64, error) {
	if v, ok := s.max[key]; ok {
		return v, nil
	}
	members, err := s.client.ZRevRange(ctx, key, 0, 0).Result()
	if err != nil {
		return 0, err
	}
	var highest uint64
	if len(members) > 0 {
		highest, err = strconv.ParseUint(members[0], 10, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "failed to parse nonce %q", members[0])
		}
	}
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	s.max[key] = highest
	s.count[key] = int(count)
	return highest, nil
}
