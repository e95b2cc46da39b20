package gate

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memEntry struct {
	val       string
	expiresAt time.Time
}

// MemKVStore is an in-process KVStore for development and tests. Not
// suitable for multi-process deployments: entries written here are
// invisible to other processes.
type MemKVStore struct {
	data *expirable.LRU[string, memEntry]
}

var _ KVStore = (*MemKVStore)(nil)

func NewMemKVStore(capacity int, maxTTL time.Duration) *MemKVStore {
	return &MemKVStore{
		data: expirable.NewLRU[string, memEntry](capacity, nil, maxTTL),
	}
}

func (s *MemKVStore) Exists(ctx context.Context, key string) (bool, error) {
	e, ok := s.data.Get(key)
	if !ok {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		s.data.Remove(key)
		return false, nil
	}
	return true, nil
}

func (s *MemKVStore) SetWithTTL(ctx context.Context, key string, val string, ttl time.Duration) error {
	s.data.Add(key, memEntry{val: val, expiresAt: time.Now().Add(ttl)})
	return nil
}
