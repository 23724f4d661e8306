// ABOUTME: Active session cache holding the signed-in account's public fields
// ABOUTME: Absent, malformed or incomplete sessions are invalid and removed

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/retinal-ledger/internal/kv"
	"github.com/2389/retinal-ledger/internal/store"
)

// ErrNoSession is returned when there is no valid active session.
var ErrNoSession = errors.New("no active session")

// Session is the currently authenticated account, reconstructed from cache.
type Session struct {
	AccountID   string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

func (s *Session) complete() bool {
	return s.AccountID != "" && s.Email != "" && s.DisplayName != ""
}

// SessionCache stores one active session under the session key.
type SessionCache struct {
	store  kv.Store
	keys   Keys
	logger *slog.Logger
}

// NewSessionCache returns a session cache over kvStore.
func NewSessionCache(kvStore kv.Store, keys Keys, logger *slog.Logger) *SessionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCache{
		store:  kvStore,
		keys:   keys,
		logger: logger.With("component", "session-cache"),
	}
}

// Save replaces the active session with acct's public fields.
func (c *SessionCache) Save(ctx context.Context, acct *store.Account) error {
	sess := Session{AccountID: acct.ID, Email: acct.Email, DisplayName: acct.DisplayName}
	if !sess.complete() {
		return errors.New("account is missing session fields")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := c.store.Set(ctx, c.keys.Session(), raw); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Load returns the active session or ErrNoSession. A malformed or incomplete
// session is deleted before ErrNoSession is returned.
func (c *SessionCache) Load(ctx context.Context) (*Session, error) {
	raw, err := c.store.Get(ctx, c.keys.Session())
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil || !sess.complete() {
		c.logger.Warn("discarding invalid session", "error", err)
		if delErr := c.store.Delete(ctx, c.keys.Session()); delErr != nil {
			c.logger.Error("failed to delete invalid session", "error", delErr)
		}
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Clear invalidates the active session.
func (c *SessionCache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.keys.Session()); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// ClearIf invalidates the session only when it belongs to accountID and
// reports whether it did.
func (c *SessionCache) ClearIf(ctx context.Context, accountID string) (bool, error) {
	sess, err := c.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sess.AccountID != accountID {
		return false, nil
	}
	return true, c.Clear(ctx)
}
