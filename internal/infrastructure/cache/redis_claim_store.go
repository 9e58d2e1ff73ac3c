package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erp/ordersync/internal/domain/shared"
)

const defaultClaimKeyPrefix = "ordersync:"

// releaseScript deletes the key only while it still holds our token, so an
// expired claim re-taken by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimStore implements ClaimStore using Redis SETNX, shared by every
// worker connected to the same Redis.
type RedisClaimStore struct {
	client    *redis.Client
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// KeyPrefix is prepended to every lease key; defaults to "ordersync:"
	KeyPrefix string
}

// NewRedisClaimStore creates a new Redis-based claim store
func NewRedisClaimStore(cfg RedisConfig) (*RedisClaimStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisClaimStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisClaimStoreWithClient creates a store with an existing Redis client
func NewRedisClaimStoreWithClient(client *redis.Client, keyPrefix string) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = defaultClaimKeyPrefix
	}
	return &RedisClaimStore{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// Claim takes key for ttl using SET NX with expiry in one atomic operation
func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if ok {
		s.mu.Lock()
		s.tokens[key] = token
		s.mu.Unlock()
	}
	return ok, nil
}

// Release drops a claim taken by this store; claims held by others are untouched
func (s *RedisClaimStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	token, ok := s.tokens[key]
	delete(s.tokens, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisClaimStore) Close() error {
	return s.client.Close()
}

var _ shared.ClaimStore = (*RedisClaimStore)(nil)
