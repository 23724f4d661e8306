// ABOUTME: Redis-backed key-value store using go-redis
// ABOUTME: Prefix listing uses SCAN so large keyspaces never block the server

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore stores values as plain Redis strings.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required for the redis backend")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	logger.Debug("redis cache connected", "addr", opts.Addr, "db", opts.DB)
	return &RedisStore{client: client, logger: logger}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Keys scans for prefix*. SCAN may repeat keys, so results are deduplicated.
func (r *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	iter := r.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if strings.HasPrefix(k, prefix) {
			seen[k] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
