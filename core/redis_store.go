package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed implementation of the Memory interface.
// Keys are namespaced to prevent collisions with other applications
// sharing the instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisStoreOptions configures the Redis store
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string // Key namespace, defaults to "tripweaver"
	Logger    Logger // Optional logger
}

// NewRedisStore creates a Redis store and verifies connectivity with a ping
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	if opts.Namespace == "" {
		opts.Namespace = "tripweaver"
	}
	if opts.Logger == nil {
		opts.Logger = &NoOpLogger{}
	}

	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", ErrConnectionFailed)
	}

	opts.Logger.Debug("Redis store connected", map[string]interface{}{
		"operation": "redis_connect",
		"namespace": opts.Namespace,
	})

	return &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    opts.Logger,
	}, nil
}

// namespacedKey prefixes a key with the store namespace
func (r *RedisStore) namespacedKey(key string) string {
	return fmt.Sprintf("%s:%s", r.namespace, key)
}

// Get retrieves a value. Missing keys return "" with no error.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.namespacedKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with an optional TTL (0 means no expiry)
func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.namespacedKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.namespacedKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the key is present
func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.namespacedKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Close releases the underlying connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
