// Package replay provides the duplicate-transaction store used to reject
// replayed gateway notifications.
package replay

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store is the injected duplicate-check capability. It is either fully present
// or fully absent on an adapter; a single interface value cannot be half
// configured the way paired nullable callbacks can.
type Store interface {
	// Seen reports whether the transaction id was already recorded.
	Seen(ctx context.Context, txnID string) (bool, error)
	// Mark records the transaction id.
	Mark(ctx context.Context, txnID string) error
}

// RedisStore records transaction ids in Redis. MarkIfNew is atomic (SetNX), so
// concurrent notifications for the same id cannot both pass.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *RedisStore) key(txnID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "txn"
	}
	return prefix + ":" + txnID
}

// Seen implements Store.
func (s *RedisStore) Seen(ctx context.Context, txnID string) (bool, error) {
	n, err := s.R.Exists(ctx, s.key(txnID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark implements Store.
func (s *RedisStore) Mark(ctx context.Context, txnID string) error {
	return s.R.Set(ctx, s.key(txnID), "1", s.TTL).Err()
}

// MarkIfNew records the id and reports whether it was new, in one atomic step.
// Adapters prefer it over Seen+Mark when the store supports it.
func (s *RedisStore) MarkIfNew(ctx context.Context, txnID string) (bool, error) {
	return s.R.SetNX(ctx, s.key(txnID), "1", s.TTL).Result()
}

// MemoryStore is an in-process Store for tests and single-instance deployments.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// Seen implements Store.
func (s *MemoryStore) Seen(_ context.Context, txnID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[txnID]
	return ok, nil
}

// Mark implements Store.
func (s *MemoryStore) Mark(_ context.Context, txnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[txnID] = struct{}{}
	return nil
}
