// ABOUTME: Entity types, sentinel errors and store interfaces for durable persistence
// ABOUTME: Defines Account, Record and the AccountStore/RecordStore/AuditStore contracts

package store

import (
	"context"
	"errors"
	"time"
)

// HealthyLabel is the classification label counted as a healthy outcome.
// Every other label counts as abnormal.
const HealthyLabel = "Healthy"

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount is returned when the normalized email is already registered.
	ErrDuplicateAccount = errors.New("account already exists with this email")

	// ErrForeignKey is returned when a record references an account that does not exist.
	ErrForeignKey = errors.New("record references unknown account")

	// ErrStorageUnavailable is returned when the database cannot be opened or reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Account is a registered identity. The credential hash never leaves the
// store except through GetAccountByEmail.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Score is one (label, confidence) pair produced by the classifier.
type Score struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Record is one stored classification outcome owned by exactly one account.
type Record struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"accountId"`
	SourceFileName string    `json:"fileName"`
	Scores         []Score   `json:"scores"`
	Top            Score     `json:"topPrediction"`
	ImageRef       string    `json:"imageRef,omitempty"` // optional, advisory only
	CreatedAt      time.Time `json:"createdAt"`
}

// OutcomeCounts summarizes an account's records by outcome.
type OutcomeCounts struct {
	Total    int
	Healthy  int
	Abnormal int
}

// AccountStore owns account rows and their credential hashes.
type AccountStore interface {
	// CreateAccount inserts an account with an already-computed password hash.
	// Returns ErrDuplicateAccount if the normalized email exists.
	CreateAccount(ctx context.Context, name, email, credentialHash string) (*Account, error)

	// GetAccountByEmail returns the account and its stored hash.
	GetAccountByEmail(ctx context.Context, email string) (*Account, string, error)

	GetAccountByID(ctx context.Context, id string) (*Account, error)

	// ListAccounts returns all accounts, newest-created first.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// DeleteAccount removes the account and its records, returning how many
	// records went with it. Returns ErrAccountNotFound if nothing was deleted.
	DeleteAccount(ctx context.Context, id string) (int, error)

	// DeleteAllAccounts removes every account and record.
	DeleteAllAccounts(ctx context.Context) (accounts int, records int, err error)
}

// RecordStore owns classification records.
type RecordStore interface {
	// AppendRecord inserts r, filling in ID and CreatedAt.
	// Returns ErrForeignKey if r.AccountID does not exist.
	AppendRecord(ctx context.Context, r *Record) (string, error)

	// ListRecordsForAccount returns the account's records, newest first.
	ListRecordsForAccount(ctx context.Context, accountID string) ([]*Record, error)

	CountByOutcome(ctx context.Context, accountID string) (OutcomeCounts, error)

	DeleteAccountRecords(ctx context.Context, accountID string) (int, error)

	// DeleteRecord removes a single record owned by accountID.
	// Reports false if no such record belongs to that account.
	DeleteRecord(ctx context.Context, accountID, recordID string) (bool, error)
}

// AuditStore records administrative actions.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, limit int) ([]AuditEntry, error)
}

// Ensure SQLiteStore implements every store interface.
var (
	_ AccountStore = (*SQLiteStore)(nil)
	_ RecordStore  = (*SQLiteStore)(nil)
	_ AuditStore   = (*SQLiteStore)(nil)
)
