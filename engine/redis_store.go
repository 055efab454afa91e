package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys.
const DefaultRedisPrefix = "swarms:cache:"

// RedisStore shares cache entries between processes through Redis.
// Entries are JSON encoded and expire through the key TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

var _ Store = (*RedisStore)(nil)

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix replaces DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithOwnedClient makes Close also close the Redis client.
func WithOwnedClient() RedisStoreOption {
	return func(s *RedisStore) {
		s.owned = true
	}
}

// NewRedisStore creates a store on client. A ttl of zero stores entries
// without expiry.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Purge deletes every key under the prefix.
func (s *RedisStore) Purge(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Len counts keys under the prefix. It returns 0 when Redis is unreachable.
func (s *RedisStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	keys, err := s.keys(ctx)
	if err != nil {
		return 0
	}
	return len(keys)
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
