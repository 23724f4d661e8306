// ABOUTME: Maintenance service for account summaries, deletions, wipes and exports
// ABOUTME: Keeps durable store, record cache and session consistent after every change

package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/2389/retinal-ledger/internal/auth"
	"github.com/2389/retinal-ledger/internal/cache"
	"github.com/2389/retinal-ledger/internal/kv"
	"github.com/2389/retinal-ledger/internal/store"
)

// UnknownIdentity fills email and name for accounts known only from cache keys.
const UnknownIdentity = "Unknown"

// Deps are the collaborators a Service operates on.
type Deps struct {
	Accounts store.AccountStore
	Records  store.RecordStore
	Audit    store.AuditStore
	Cache    *cache.RecordCache
	Sessions *cache.SessionCache
	KV       kv.Store
	Keys     cache.Keys
}

// Service runs maintenance operations.
type Service struct {
	Deps
	logger *slog.Logger
	now    func() time.Time
}

// New creates a maintenance service.
func New(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Deps:   deps,
		logger: logger.With("component", "maintenance"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AccountSummary describes one account for the admin overview.
type AccountSummary struct {
	AccountID    string
	Email        string
	Name         string
	RecordCount  int
	LastActivity *time.Time
}

// SummarizeAllAccounts lists every account known to the durable store or the
// cache. Identity comes from the durable store; record counts and activity
// come from the cache. Accounts present only in the cache are labelled
// Unknown unless they are the active session. Most recent activity sorts
// first; accounts without activity keep their relative order at the end.
func (s *Service) SummarizeAllAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, durableErr := s.Accounts.ListAccounts(ctx)
	if durableErr != nil {
		s.logger.Warn("durable account listing failed, summarizing from cache only", "error", durableErr)
	}

	cachedIDs, err := s.Cache.AccountIDs(ctx)
	if err != nil {
		if durableErr != nil {
			return nil, fmt.Errorf("summarizing accounts: %w", errors.Join(durableErr, err))
		}
		s.logger.Warn("cache listing failed", "error", err)
	}

	var session *cache.Session
	if sess, err := s.Sessions.Load(ctx); err == nil {
		session = sess
	} else if !errors.Is(err, cache.ErrNoSession) {
		s.logger.Warn("session lookup failed", "error", err)
	}

	seen := make(map[string]bool, len(accounts))
	summaries := make([]AccountSummary, 0, len(accounts)+len(cachedIDs))
	for _, acct := range accounts {
		seen[acct.ID] = true
		summaries = append(summaries, s.summarize(ctx, acct.ID, acct.Email, acct.DisplayName))
	}
	for _, id := range cachedIDs {
		if seen[id] {
			continue
		}
		email, name := UnknownIdentity, UnknownIdentity
		if session != nil && session.AccountID == id {
			email, name = session.Email, session.DisplayName
		}
		summaries = append(summaries, s.summarize(ctx, id, email, name))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastActivity, summaries[j].LastActivity
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, id, email, name string) AccountSummary {
	count, last, err := s.Cache.Activity(ctx, id)
	if err != nil {
		s.logger.Warn("reading cached activity failed", "account", id, "error", err)
	}
	return AccountSummary{
		AccountID:    id,
		Email:        email,
		Name:         name,
		RecordCount:  count,
		LastActivity: last,
	}
}

// DeleteAccount removes the account's cached records, its durable row and
// records, and the active session if it belongs to the account. It reports
// false when there was nothing to delete.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	inCache, err := s.Cache.Exists(ctx, accountID)
	if err != nil {
		s.logger.Warn("cache lookup failed", "account", accountID, "error", err)
	}
	// Cache first: if it fails, the durable account is left for a retry.
	if err := s.Cache.Clear(ctx, accountID); err != nil {
		return false, fmt.Errorf("deleting account %s: %w", accountID, err)
	}

	removed, err := s.Accounts.DeleteAccount(ctx, accountID)
	inDurable := err == nil
	if err != nil && !errors.Is(err, store.ErrAccountNotFound) {
		return false, fmt.Errorf("deleting account %s: %w", accountID, err)
	}

	if _, err := s.Sessions.ClearIf(ctx, accountID); err != nil {
		s.logger.Warn("session invalidation failed", "account", accountID, "error", err)
	}

	deleted := inCache || inDurable
	if deleted {
		s.audit(ctx, store.AuditDeleteAccount, "account", accountID, map[string]any{"records": removed})
		s.logger.Info("deleted account", "account", accountID, "records", removed)
	}
	return deleted, nil
}

// DeleteAccounts applies DeleteAccount to each id and returns how many
// succeeded. Failures are logged and do not stop the remaining deletions.
func (s *Service) DeleteAccounts(ctx context.Context, accountIDs []string) int {
	var succeeded int
	for _, id := range accountIDs {
		deleted, err := s.DeleteAccount(ctx, id)
		if err != nil {
			s.logger.Error("bulk delete failed for account", "account", id, "error", err)
			continue
		}
		if deleted {
			succeeded++
		}
	}
	return succeeded
}

// DeleteRecords removes specific records owned by accountID from both stores
// and returns how many distinct records were removed.
func (s *Service) DeleteRecords(ctx context.Context, accountID string, recordIDs []string) (int, error) {
	gone := make(map[string]bool)
	var errs []error
	for _, id := range recordIDs {
		deleted, err := s.Records.DeleteRecord(ctx, accountID, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if deleted {
			gone[id] = true
		}
	}

	cached, err := s.Cache.Remove(ctx, accountID, recordIDs...)
	if err != nil {
		errs = append(errs, err)
	}
	for _, id := range cached {
		gone[id] = true
	}

	if len(gone) > 0 {
		s.audit(ctx, store.AuditDeleteRecords, "account", accountID, map[string]any{"records": len(gone)})
	}
	return len(gone), errors.Join(errs...)
}

// WipeAll deletes every application-owned cache key and every durable
// account and record. The session is always invalidated, even if an earlier
// step failed.
func (s *Service) WipeAll(ctx context.Context) (bool, error) {
	var errs []error

	keys, err := s.Cache.ClearAll(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("clearing cache: %w", err))
	}

	accounts, records, err := s.Accounts.DeleteAllAccounts(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("deleting accounts: %w", err))
	}

	if err := s.Sessions.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	s.audit(ctx, store.AuditWipeAll, "all", "*", map[string]any{
		"cache_keys": keys,
		"accounts":   accounts,
		"records":    records,
	})
	s.logger.Warn("wiped all data", "cache_keys", keys, "accounts", accounts, "records", records, "errors", len(errs))
	return len(errs) == 0, errors.Join(errs...)
}

// Export is the snapshot produced by ExportAccountRecords.
type Export struct {
	AccountID   string           `json:"accountId"`
	ExportDate  time.Time        `json:"exportDate"`
	RecordCount int              `json:"recordCount"`
	Records     []ExportedRecord `json:"records"`
}

// ExportedRecord is one record in an Export.
type ExportedRecord struct {
	FileName  string        `json:"fileName"`
	TopLabel  store.Score   `json:"topLabel"`
	Scores    []store.Score `json:"scores"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ExportAccountRecords returns an indented JSON snapshot of the account's
// records, or nil if it has none. Records come from the durable store, or
// from the cache when the store fails or has none.
func (s *Service) ExportAccountRecords(ctx context.Context, accountID string) ([]byte, error) {
	records, err := s.Records.ListRecordsForAccount(ctx, accountID)
	if err != nil || len(records) == 0 {
		cached, cacheErr := s.Cache.Load(ctx, accountID)
		if err != nil && cacheErr != nil {
			return nil, fmt.Errorf("exporting account %s: %w", accountID, err)
		}
		if err != nil {
			s.logger.Warn("durable read failed, exporting cached records", "account", accountID, "error", err)
		}
		if cacheErr != nil {
			s.logger.Warn("cache read failed", "account", accountID, "error", cacheErr)
		}
		records = cached
	}
	if len(records) == 0 {
		return nil, nil
	}

	exp := Export{
		AccountID:   accountID,
		ExportDate:  s.now(),
		RecordCount: len(records),
		Records:     make([]ExportedRecord, 0, len(records)),
	}
	for _, r := range records {
		exp.Records = append(exp.Records, ExportedRecord{
			FileName:  r.SourceFileName,
			TopLabel:  r.Top,
			Scores:    r.Scores,
			CreatedAt: r.CreatedAt,
		})
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	s.audit(ctx, store.AuditExportAccount, "account", accountID, map[string]any{"records": len(records)})
	return data, nil
}

// KeyUsage is the size of one cache key.
type KeyUsage struct {
	Key   string
	Type  string // "records" or "session"
	Bytes int
}

// Footprint summarizes cache storage.
type Footprint struct {
	TotalKeys  int
	TotalBytes int
	PerKey     []KeyUsage
}

// TotalKiB reports TotalBytes in kibibytes.
func (f *Footprint) TotalKiB() float64 {
	return float64(f.TotalBytes) / 1024
}

// StorageFootprint measures every application-owned cache key.
func (s *Service) StorageFootprint(ctx context.Context) (*Footprint, error) {
	keys, err := s.KV.Keys(ctx, s.Keys.Owned())
	if err != nil {
		return nil, fmt.Errorf("listing cache keys: %w", err)
	}

	fp := &Footprint{PerKey: make([]KeyUsage, 0, len(keys))}
	for _, k := range keys {
		value, err := s.KV.Get(ctx, k)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", k, err)
		}
		fp.PerKey = append(fp.PerKey, KeyUsage{Key: k, Type: s.Keys.KeyType(k), Bytes: len(value)})
		fp.TotalBytes += len(value)
	}
	fp.TotalKeys = len(fp.PerKey)
	return fp, nil
}

// AuditLog returns recent maintenance audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]store.AuditEntry, error) {
	return s.Audit.ListAuditLog(ctx, limit)
}

// audit appends an entry attributed to the admin in ctx. Failures are logged.
func (s *Service) audit(ctx context.Context, action store.AuditAction, targetType, targetID string, detail map[string]any) {
	actor := UnknownIdentity
	if admin := auth.AdminFromContext(ctx); admin != nil {
		actor = admin.Subject
	}
	err := s.Audit.AppendAuditLog(ctx, &store.AuditEntry{
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		s.logger.Warn("failed to append audit entry", "action", action, "error", err)
	}
}
