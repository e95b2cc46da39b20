package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisKVStore struct {
	rdb *redis.Client
}

var _ KVStore = (*RedisKVStore)(nil)

// NewRedisKVStore connects to redis using a connection URL. The
// connection is verified with a ping before returning.
func NewRedisKVStore(redisURL string) (*RedisKVStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not configure redis kv store: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis kv store: %w", err)
	}
	return &RedisKVStore{rdb: rdb}, nil
}

func (s *RedisKVStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisKVStore) SetWithTTL(ctx context.Context, key string, val string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, val, ttl).Err()
}
