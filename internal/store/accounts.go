// ABOUTME: Account persistence: creation, lookup, listing and cascading deletion
// ABOUTME: Email uniqueness is enforced by the accounts table's UNIQUE constraint

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateAccount inserts a new account. The caller supplies the credential
// hash; this package never sees plaintext passwords.
func (s *SQLiteStore) CreateAccount(ctx context.Context, name, email, credentialHash string) (*Account, error) {
	acct := &Account{
		ID:          uuid.New().String(),
		Email:       normalizeEmail(email),
		DisplayName: strings.TrimSpace(name),
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO accounts (id, email, name, credential_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		acct.ID,
		acct.Email,
		acct.DisplayName,
		credentialHash,
		formatTime(acct.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Info("created account", "id", acct.ID)
	return acct, nil
}

// GetAccountByEmail looks up an account by normalized email and returns its
// credential hash alongside it.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*Account, string, error) {
	query := `
		SELECT id, email, name, credential_hash, created_at
		FROM accounts
		WHERE email = ?
	`
	var hash string
	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, normalizeEmail(email)), &hash)
	if err != nil {
		return nil, "", err
	}
	return acct, hash, nil
}

// GetAccountByID returns the account with the given id.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	query := `
		SELECT id, email, name, credential_hash, created_at
		FROM accounts
		WHERE id = ?
	`
	var hash string
	return scanAccount(s.db.QueryRowContext(ctx, query, id), &hash)
}

// ListAccounts returns every account, newest first.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*Account, error) {
	query := `
		SELECT id, email, name, credential_hash, created_at
		FROM accounts
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []*Account
	for rows.Next() {
		var hash string
		acct, err := scanAccount(rows, &hash)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes the account and all of its records atomically.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) (int, error) {
	var removed int
	err := s.withTx(ctx, func(tx dbtx) error {
		n, err := deleteRecordsFor(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = n

		result, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if affected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("deleted account", "id", id, "records", removed)
	return removed, nil
}

// DeleteAllAccounts removes every account and record.
func (s *SQLiteStore) DeleteAllAccounts(ctx context.Context) (int, int, error) {
	var accounts, records int
	err := s.withTx(ctx, func(tx dbtx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM records")
		if err != nil {
			return fmt.Errorf("deleting records: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		records = int(n)

		result, err = tx.ExecContext(ctx, "DELETE FROM accounts")
		if err != nil {
			return fmt.Errorf("deleting accounts: %w", err)
		}
		n, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		accounts = int(n)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.logger.Warn("deleted all accounts", "accounts", accounts, "records", records)
	return accounts, records, nil
}

func scanAccount(scanner interface{ Scan(dest ...any) error }, hash *string) (*Account, error) {
	var acct Account
	var createdAt string

	err := scanner.Scan(&acct.ID, &acct.Email, &acct.DisplayName, hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	acct.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
