// Package kv defines the key-value abstraction underneath the local cache.
//
// # Backends
//
//   - memory: process-local map, lost on exit
//   - local: a single-table SQLite file that survives restarts
//   - redis: a Redis server, shared between processes on one host or many
//
// All backends store opaque byte values under string keys and list keys by
// prefix in sorted order. There is no cross-key atomicity: concurrent writers
// from different processes follow last-writer-wins.
package kv
