// ABOUTME: Per-account record cache with a versioned JSON envelope
// ABOUTME: Corrupt or foreign-owned entries are discarded for that account only

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/retinal-ledger/internal/kv"
	"github.com/2389/retinal-ledger/internal/store"
)

// schemaVersion is the envelope version this package reads and writes.
const schemaVersion = 1

// ErrCorrupted marks a cache value that could not be used. It never escapes
// Load; the entry is deleted and an empty result returned instead.
var ErrCorrupted = errors.New("cache: corrupted entry")

type envelope struct {
	Version   int            `json:"version"`
	AccountID string         `json:"accountId"`
	Records   []cachedRecord `json:"records"`
}

type cachedRecord struct {
	ID        string        `json:"id"`
	AccountID string        `json:"accountId"`
	FileName  string        `json:"fileName"`
	Scores    []store.Score `json:"scores"`
	Top       store.Score   `json:"top"`
	ImageRef  string        `json:"imageRef,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// RecordCache mirrors each account's records into a kv.Store. Every read goes
// to the backend, so data written by another process is seen on the next
// Load; concurrent writers from different processes follow last-writer-wins.
type RecordCache struct {
	store  kv.Store
	keys   Keys
	logger *slog.Logger

	mu sync.Mutex // serializes read-modify-write within this process
}

// NewRecordCache returns a cache over kvStore using keys for naming.
func NewRecordCache(kvStore kv.Store, keys Keys, logger *slog.Logger) *RecordCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCache{
		store:  kvStore,
		keys:   keys,
		logger: logger.With("component", "record-cache"),
	}
}

// Load returns the account's cached records, newest first. Corrupt data for
// this account is removed and yields an empty result. Only backend failures
// are returned as errors.
func (c *RecordCache) Load(ctx context.Context, accountID string) ([]*store.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loadLocked(ctx, accountID)
}

// Append prepends r to the account's records. r must belong to accountID.
func (c *RecordCache) Append(ctx context.Context, accountID string, r *store.Record) error {
	if r.AccountID != accountID {
		return fmt.Errorf("record owner %q does not match account %q", r.AccountID, accountID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.loadLocked(ctx, accountID)
	if err != nil {
		return err
	}

	next := make([]*store.Record, 0, len(current)+1)
	next = append(next, r)
	next = append(next, current...)
	return c.persistLocked(ctx, accountID, next)
}

// Remove drops the records with the given ids and returns the ids that were present.
func (c *RecordCache) Remove(ctx context.Context, accountID string, recordIDs ...string) ([]string, error) {
	drop := make(map[string]bool, len(recordIDs))
	for _, id := range recordIDs {
		drop[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.loadLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var removed []string
	kept := make([]*store.Record, 0, len(current))
	for _, r := range current {
		if drop[r.ID] {
			removed = append(removed, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if len(kept) == 0 {
		return removed, c.clearLocked(ctx, accountID)
	}
	return removed, c.persistLocked(ctx, accountID, kept)
}

// Clear removes the account's cached records. Other accounts are untouched.
func (c *RecordCache) Clear(ctx context.Context, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked(ctx, accountID)
}

// Exists reports whether a records key is present for the account.
func (c *RecordCache) Exists(ctx context.Context, accountID string) (bool, error) {
	_, err := c.store.Get(ctx, c.keys.Records(accountID))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking cache for %s: %w", accountID, err)
	}
	return true, nil
}

// PurgeLegacy deletes the unscoped pre-isolation key without reading it.
func (c *RecordCache) PurgeLegacy(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.keys.LegacyRecords()); err != nil {
		return fmt.Errorf("purging legacy records: %w", err)
	}
	return nil
}

// AccountIDs lists the accounts that have a records key, sorted.
func (c *RecordCache) AccountIDs(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, c.keys.Owned())
	if err != nil {
		return nil, fmt.Errorf("listing cache keys: %w", err)
	}
	var ids []string
	for _, k := range keys {
		if id, ok := c.keys.AccountID(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Activity returns the record count and the newest record time, if any.
func (c *RecordCache) Activity(ctx context.Context, accountID string) (int, *time.Time, error) {
	records, err := c.Load(ctx, accountID)
	if err != nil {
		return 0, nil, err
	}
	var last *time.Time
	for _, r := range records {
		if last == nil || r.CreatedAt.After(*last) {
			t := r.CreatedAt
			last = &t
		}
	}
	return len(records), last, nil
}

// ClearAll deletes every application-owned key, session included.
func (c *RecordCache) ClearAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys(ctx, c.keys.Owned())
	if err != nil {
		return 0, fmt.Errorf("listing cache keys: %w", err)
	}

	var deleted int
	var errs []error
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	c.logger.Warn("cleared all cache keys", "deleted", deleted, "failed", len(errs))
	return deleted, errors.Join(errs...)
}

func (c *RecordCache) loadLocked(ctx context.Context, accountID string) ([]*store.Record, error) {
	key := c.keys.Records(accountID)
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache for %s: %w", accountID, err)
	}

	records, dropped, err := decodeEnvelope(raw, accountID)
	if err != nil {
		c.logger.Warn("discarding corrupted cache entry", "account", accountID, "error", err)
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.logger.Error("failed to delete corrupted cache entry", "account", accountID, "error", delErr)
		}
		return nil, nil
	}

	if dropped > 0 {
		c.logger.Warn("dropped records owned by another account", "account", accountID, "dropped", dropped)
		if err := c.persistLocked(ctx, accountID, records); err != nil {
			c.logger.Error("failed to rewrite cleaned cache entry", "account", accountID, "error", err)
		}
	}

	return records, nil
}

func (c *RecordCache) persistLocked(ctx context.Context, accountID string, records []*store.Record) error {
	raw, err := encodeEnvelope(accountID, records)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, c.keys.Records(accountID), raw); err != nil {
		return fmt.Errorf("writing cache for %s: %w", accountID, err)
	}
	return nil
}

func (c *RecordCache) clearLocked(ctx context.Context, accountID string) error {
	if err := c.store.Delete(ctx, c.keys.Records(accountID)); err != nil {
		return fmt.Errorf("clearing cache for %s: %w", accountID, err)
	}
	return nil
}

func encodeEnvelope(accountID string, records []*store.Record) ([]byte, error) {
	env := envelope{
		Version:   schemaVersion,
		AccountID: accountID,
		Records:   make([]cachedRecord, 0, len(records)),
	}
	for _, r := range records {
		env.Records = append(env.Records, cachedRecord{
			ID:        r.ID,
			AccountID: r.AccountID,
			FileName:  r.SourceFileName,
			Scores:    r.Scores,
			Top:       r.Top,
			ImageRef:  r.ImageRef,
			CreatedAt: r.CreatedAt,
		})
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding cache envelope: %w", err)
	}
	return raw, nil
}

// decodeEnvelope returns the records owned by accountID and how many foreign
// records were dropped. Any structural problem is reported as ErrCorrupted.
func decodeEnvelope(raw []byte, accountID string) ([]*store.Record, int, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if env.Version != schemaVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrCorrupted, env.Version)
	}
	if env.AccountID != accountID {
		return nil, 0, fmt.Errorf("%w: envelope owned by %q", ErrCorrupted, env.AccountID)
	}

	var dropped int
	records := make([]*store.Record, 0, len(env.Records))
	for _, cr := range env.Records {
		if cr.AccountID != accountID {
			dropped++
			continue
		}
		records = append(records, &store.Record{
			ID:             cr.ID,
			AccountID:      cr.AccountID,
			SourceFileName: cr.FileName,
			Scores:         cr.Scores,
			Top:            cr.Top,
			ImageRef:       cr.ImageRef,
			CreatedAt:      cr.CreatedAt,
		})
	}
	return records, dropped, nil
}
