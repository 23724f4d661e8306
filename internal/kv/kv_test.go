package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor per backend so every test runs against all three.
func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		BackendMemory: func(t *testing.T) Store {
			return NewMemoryStore()
		},
		BackendLocal: func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cache.db"), nil)
			require.NoError(t, err)
			return s
		},
		BackendRedis: func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()}, nil)
			require.NoError(t, err)
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestStore_SetGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "app:a", []byte("one")))
		got, err := s.Get(ctx, "app:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), got)

		require.NoError(t, s.Set(ctx, "app:a", []byte("two")))
		got, err = s.Get(ctx, "app:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_DeleteIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "app:a", []byte("x")))
		require.NoError(t, s.Delete(ctx, "app:a"))
		require.NoError(t, s.Delete(ctx, "app:a"))

		_, err := s.Get(ctx, "app:a")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_KeysByPrefix(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for _, k := range []string{"app:records:b", "app:session", "app:records:a", "other:x", "APP:upper"} {
			require.NoError(t, s.Set(ctx, k, []byte("v")))
		}

		keys, err := s.Keys(ctx, "app:")
		require.NoError(t, err)
		assert.Equal(t, []string{"app:records:a", "app:records:b", "app:session"}, keys)

		none, err := s.Keys(ctx, "missing:")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `retinal-ai:`, escapeGlob("retinal-ai:"))
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "app:session", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "app:session")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(got))
}

func TestMemoryStore_ClosedFails(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"memory", Options{Backend: BackendMemory}, false},
		{"local", Options{Backend: BackendLocal, Path: filepath.Join(t.TempDir(), "c.db")}, false},
		{"local without path", Options{Backend: BackendLocal}, true},
		{"redis", Options{Backend: BackendRedis, RedisAddr: mr.Addr()}, false},
		{"redis without addr", Options{Backend: BackendRedis}, true},
		{"unknown", Options{Backend: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr}, nil)
	assert.Error(t, err)
}
