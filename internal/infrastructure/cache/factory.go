package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/config"
)

// Claim backends accepted by sync.claim_backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ClaimStoreFactory opens the store that holds order leases. A lease is only
// visible to workers that share the backend: the memory backend covers one
// process, the redis backend every process on the same Redis.
type ClaimStoreFactory struct {
	redis         config.RedisConfig
	logger        *zap.Logger
	namespace     string
	requireShared bool
	dial          func(RedisConfig) (shared.ClaimStore, error)
}

// ClaimStoreFactoryOption configures a ClaimStoreFactory.
type ClaimStoreFactoryOption func(*ClaimStoreFactory)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithNamespace keeps leases of different deployments apart when they share
// one Redis, e.g. "production".
func WithNamespace(namespace string) ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		f.namespace = namespace
	}
}

// RequireSharedLeases makes an unreachable Redis an error. Without it the
// factory degrades to process-local leases.
func RequireSharedLeases() ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		f.requireShared = true
	}
}

// NewClaimStoreFactory creates a factory for cfg.
func NewClaimStoreFactory(cfg config.RedisConfig, opts ...ClaimStoreFactoryOption) *ClaimStoreFactory {
	f := &ClaimStoreFactory{
		redis:  cfg,
		logger: zap.NewNop(),
		dial: func(c RedisConfig) (shared.ClaimStore, error) {
			return NewRedisClaimStore(c)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore opens the lease store for backend.
func (f *ClaimStoreFactory) CreateStore(backend string) (shared.ClaimStore, error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemoryClaimStore(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown claim backend %q", backend)
	}

	store, err := f.dial(f.redisConfig())
	if err == nil {
		f.logger.Info("Order leases shared through Redis",
			zap.String("addr", f.redis.Addr()),
			zap.String("namespace", f.namespace),
		)
		return store, nil
	}
	if f.requireShared {
		return nil, fmt.Errorf("shared order leases unavailable: %w", err)
	}

	f.logger.Warn("Redis unreachable, order leases are local to this process",
		zap.String("addr", f.redis.Addr()),
		zap.Error(err),
	)
	return NewInMemoryClaimStore(), nil
}

func (f *ClaimStoreFactory) redisConfig() RedisConfig {
	prefix := defaultClaimKeyPrefix
	if f.namespace != "" {
		prefix += f.namespace + ":"
	}
	return RedisConfig{
		Host:      f.redis.Host,
		Port:      f.redis.Port,
		Password:  f.redis.Password,
		DB:        f.redis.DB,
		KeyPrefix: prefix,
	}
}
