// ABOUTME: Key-value store interface and backend factory for the local cache
// ABOUTME: Selects memory, local SQLite file or Redis by backend name

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendRedis  = "redis"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat namespace of byte values.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key beginning with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // local backend file

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "kv", "backend", opts.Backend)

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendLocal:
		return NewSQLiteStore(ctx, opts.Path, logger)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", opts.Backend)
	}
}
