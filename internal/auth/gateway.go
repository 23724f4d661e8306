// ABOUTME: Signup and login orchestration over the account store
// ABOUTME: Returns a uniform Result so callers never need to recover from panics

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/retinal-ledger/internal/store"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so callers cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Result is the outcome of a signup or login attempt.
type Result struct {
	Success bool
	Account *store.Account
	Err     error
}

func success(acct *store.Account) Result { return Result{Success: true, Account: acct} }

func failure(err error) Result { return Result{Err: err} }

// Gateway authenticates accounts held in an AccountStore.
type Gateway struct {
	accounts store.AccountStore
	hasher   *Hasher
	logger   *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(accounts store.AccountStore, hasher *Hasher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		accounts: accounts,
		hasher:   hasher,
		logger:   logger.With("component", "auth"),
	}
}

// Signup validates the input and creates an account.
func (g *Gateway) Signup(ctx context.Context, name, email, password string) Result {
	acct, err := g.CreateAccount(ctx, name, email, password)
	if err != nil {
		return failure(err)
	}
	return success(acct)
}

// Login verifies credentials for an existing account.
func (g *Gateway) Login(ctx context.Context, email, password string) Result {
	acct, err := g.VerifyCredentials(ctx, email, password)
	if err != nil {
		return failure(err)
	}
	return success(acct)
}

// CreateAccount validates, hashes and stores a new account.
func (g *Gateway) CreateAccount(ctx context.Context, name, email, password string) (*store.Account, error) {
	if err := validateSignup(name, email, password); err != nil {
		return nil, err
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	acct, err := g.accounts.CreateAccount(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			g.logger.Info("signup rejected: email already registered")
			return nil, err
		}
		g.logger.Error("signup failed", "error", err)
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return acct, nil
}

// VerifyCredentials returns the account when email and password match.
func (g *Gateway) VerifyCredentials(ctx context.Context, email, password string) (*store.Account, error) {
	acct, hash, err := g.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			g.hasher.Burn(password)
			g.logger.Info("login failed", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		g.logger.Error("login lookup failed", "error", err)
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if !g.hasher.Matches(hash, password) {
		g.logger.Info("login failed", "reason", "password mismatch", "account", acct.ID)
		return nil, ErrInvalidCredentials
	}

	g.logger.Info("login succeeded", "account", acct.ID)
	return acct, nil
}
