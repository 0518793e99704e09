package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// DefaultKeyPrefix namespaces every key written by RedisStore.
const DefaultKeyPrefix = "essayjudge:score:"

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
}

// RedisStore keeps cache entries in Redis with native expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ ports.CacheStore = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisStore(client, cfg.Prefix, logger), nil
}

func newRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Redis score cache initialized", zap.String("addr", client.Options().Addr))
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

// Close releases the connection pool.
func (r *RedisStore) Close() error { return r.client.Close() }

// Get treats redis.Nil as a miss.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ports.NewCacheError(key, "get", err)
	}
	r.logger.Debug("Score cache hit", zap.String("key", key))
	return data, true, nil
}

// Set stores value; a zero ttl keeps it until deleted.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return ports.NewCacheError(key, "delete", err)
	}
	return nil
}
