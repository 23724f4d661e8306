// ABOUTME: Wires the durable store, cache backend and services into one App
// ABOUTME: Exposes the boundary operations used by the retinal and retinal-admin commands

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/retinal-ledger/internal/auth"
	"github.com/2389/retinal-ledger/internal/cache"
	"github.com/2389/retinal-ledger/internal/config"
	"github.com/2389/retinal-ledger/internal/history"
	"github.com/2389/retinal-ledger/internal/kv"
	"github.com/2389/retinal-ledger/internal/maintenance"
	"github.com/2389/retinal-ledger/internal/store"
)

// WipeConfirmation is the phrase an operator must supply to WipeAll.
const WipeConfirmation = "DELETE ALL DATA"

var (
	// ErrConfirmationMismatch is returned by WipeAll when the phrase is wrong.
	ErrConfirmationMismatch = errors.New("confirmation phrase does not match")

	// ErrAdminDisabled is returned by Admin when no admin secret is configured.
	ErrAdminDisabled = errors.New("admin access is disabled: auth.admin_secret is not set")
)

// App holds every long-lived component.
type App struct {
	store    *store.SQLiteStore
	kv       kv.Store
	keys     cache.Keys
	records  *cache.RecordCache
	sessions *cache.SessionCache
	gateway  *auth.Gateway
	history  *history.Service
	maint    *maintenance.Service
	verifier *auth.JWTVerifier
	tokenTTL time.Duration
	logger   *slog.Logger
}

// Open builds an App from cfg. The caller must Close it. A durable store
// failure is fatal; an unreachable cache backend is replaced by an in-memory
// store so durable operations keep working.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.NewSQLiteStore(ctx, cfg.Database.Driver, cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	kvStore, err := kv.Open(ctx, kv.Options{
		Backend:       cfg.Cache.Backend,
		Path:          cfg.Cache.Path,
		RedisAddr:     cfg.Cache.Redis.Addr,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("cache backend unavailable, using in-memory cache",
			"backend", cfg.Cache.Backend, "error", err)
		kvStore = kv.NewMemoryStore()
	}

	var verifier *auth.JWTVerifier
	if cfg.Auth.AdminSecret != "" {
		verifier, err = auth.NewJWTVerifier([]byte(cfg.Auth.AdminSecret))
		if err != nil {
			kvStore.Close()
			db.Close()
			return nil, fmt.Errorf("creating token verifier: %w", err)
		}
	}

	keys := cache.NewKeys(cfg.Cache.Prefix)
	records := cache.NewRecordCache(kvStore, keys, logger)
	sessions := cache.NewSessionCache(kvStore, keys, logger)

	a := &App{
		store:    db,
		kv:       kvStore,
		keys:     keys,
		records:  records,
		sessions: sessions,
		gateway:  auth.NewGateway(db, auth.NewHasher(cfg.Auth.BcryptCost), logger),
		history:  history.New(db, records, logger),
		maint: maintenance.New(maintenance.Deps{
			Accounts: db,
			Records:  db,
			Audit:    db,
			Cache:    records,
			Sessions: sessions,
			KV:       kvStore,
			Keys:     keys,
		}, logger),
		verifier: verifier,
		tokenTTL: cfg.Auth.AdminTokenTTL,
		logger:   logger.With("component", "app"),
	}
	return a, nil
}

// Close closes the cache backend and then the durable store.
func (a *App) Close() error {
	return errors.Join(a.kv.Close(), a.store.Close())
}

// Signup creates an account and, on success, makes it the active session.
func (a *App) Signup(ctx context.Context, name, email, password string) auth.Result {
	res := a.gateway.Signup(ctx, name, email, password)
	if res.Success {
		a.saveSession(ctx, res.Account)
	}
	return res
}

// Login verifies credentials and, on success, makes the account the active
// session. The unscoped legacy records key is purged.
func (a *App) Login(ctx context.Context, email, password string) auth.Result {
	res := a.gateway.Login(ctx, email, password)
	if res.Success {
		a.saveSession(ctx, res.Account)
		a.purgeLegacy(ctx)
	}
	return res
}

// Logout invalidates the session. Records are untouched.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	a.purgeLegacy(ctx)
	return nil
}

// CurrentSession returns the active session or cache.ErrNoSession.
func (a *App) CurrentSession(ctx context.Context) (*cache.Session, error) {
	return a.sessions.Load(ctx)
}

// RecordClassification stores a classification result for accountID.
func (a *App) RecordClassification(ctx context.Context, accountID, fileName string, scores []store.Score, top *store.Score, imageRef string) (*store.Record, error) {
	return a.history.RecordClassification(ctx, accountID, fileName, scores, top, imageRef)
}

// ListRecords returns accountID's records, newest first.
func (a *App) ListRecords(ctx context.Context, accountID string) ([]*store.Record, error) {
	return a.history.ListRecords(ctx, accountID)
}

// Stats returns healthy and abnormal counts for accountID.
func (a *App) Stats(ctx context.Context, accountID string) (store.OutcomeCounts, error) {
	return a.history.Stats(ctx, accountID)
}

// GenerateAdminToken mints an admin token signed with the configured secret.
// A zero ttl uses auth.admin_token_ttl.
func (a *App) GenerateAdminToken(subject string, ttl time.Duration) (string, error) {
	if a.verifier == nil {
		return "", ErrAdminDisabled
	}
	if ttl <= 0 {
		ttl = a.tokenTTL
	}
	return a.verifier.Generate(subject, ttl)
}

// Admin verifies token and returns a session for maintenance operations.
func (a *App) Admin(token string) (*AdminSession, error) {
	if a.verifier == nil {
		return nil, ErrAdminDisabled
	}
	admin, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("admin authenticated", "subject", admin.Subject)
	return &AdminSession{admin: admin, svc: a.maint}, nil
}

func (a *App) saveSession(ctx context.Context, acct *store.Account) {
	if err := a.sessions.Save(ctx, acct); err != nil {
		a.logger.Warn("failed to save session", "account", acct.ID, "error", err)
	}
}

func (a *App) purgeLegacy(ctx context.Context) {
	if err := a.records.PurgeLegacy(ctx); err != nil {
		a.logger.Warn("failed to purge legacy records key", "error", err)
	}
}

// AdminSession runs maintenance operations on behalf of a verified admin.
type AdminSession struct {
	admin *auth.AdminContext
	svc   *maintenance.Service
}

// Subject returns the admin name carried by the token.
func (s *AdminSession) Subject() string { return s.admin.Subject }

func (s *AdminSession) ctx(ctx context.Context) context.Context {
	return auth.WithAdmin(ctx, s.admin)
}

// Summarize lists every known account, most recent activity first.
func (s *AdminSession) Summarize(ctx context.Context) ([]maintenance.AccountSummary, error) {
	return s.svc.SummarizeAllAccounts(s.ctx(ctx))
}

// DeleteAccount removes one account from both stores.
func (s *AdminSession) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	return s.svc.DeleteAccount(s.ctx(ctx), accountID)
}

// DeleteAccounts removes each account and returns how many were deleted.
func (s *AdminSession) DeleteAccounts(ctx context.Context, accountIDs []string) int {
	return s.svc.DeleteAccounts(s.ctx(ctx), accountIDs)
}

// DeleteRecords removes specific records owned by accountID.
func (s *AdminSession) DeleteRecords(ctx context.Context, accountID string, recordIDs []string) (int, error) {
	return s.svc.DeleteRecords(s.ctx(ctx), accountID, recordIDs)
}

// WipeAll deletes every account, record and cache key once phrase matches
// WipeConfirmation.
func (s *AdminSession) WipeAll(ctx context.Context, phrase string) (bool, error) {
	if phrase != WipeConfirmation {
		return false, ErrConfirmationMismatch
	}
	return s.svc.WipeAll(s.ctx(ctx))
}

// ExportAccount returns the account's records as indented JSON.
func (s *AdminSession) ExportAccount(ctx context.Context, accountID string) ([]byte, error) {
	return s.svc.ExportAccountRecords(s.ctx(ctx), accountID)
}

// StorageFootprint reports the size of every application-owned cache key.
func (s *AdminSession) StorageFootprint(ctx context.Context) (*maintenance.Footprint, error) {
	return s.svc.StorageFootprint(s.ctx(ctx))
}

// AuditLog returns the most recent maintenance audit entries.
func (s *AdminSession) AuditLog(ctx context.Context, limit int) ([]store.AuditEntry, error) {
	return s.svc.AuditLog(s.ctx(ctx), limit)
}
