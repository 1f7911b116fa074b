package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisHash is the hash holding all settings when none is configured.
const DefaultRedisHash = "pingsync:settings"

// RedisOptions configures a [RedisStore].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Hash is the Redis hash the settings are stored in.
	Hash string
}

// RedisStore is a [Store] backed by a single Redis hash, so several
// processes can share one set of settings.
type RedisStore struct {
	client *redis.Client
	hash   string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	hash := opts.Hash
	if hash == "" {
		hash = DefaultRedisHash
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &RedisStore{client: client, hash: hash}, nil
}

// Close closes the client connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Get returns the value stored under key, or [ErrNotFound].
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
