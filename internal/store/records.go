// ABOUTME: Classification record persistence scoped by owning account
// ABOUTME: Scores and the top prediction are stored as JSON text columns

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2389/retinal-ledger/internal/ids"
)

// AppendRecord inserts r and returns its new id. ID and CreatedAt are
// assigned here; any values already on r are overwritten.
func (s *SQLiteStore) AppendRecord(ctx context.Context, r *Record) (string, error) {
	scoresJSON, err := json.Marshal(r.Scores)
	if err != nil {
		return "", fmt.Errorf("marshaling scores: %w", err)
	}
	topJSON, err := json.Marshal(r.Top)
	if err != nil {
		return "", fmt.Errorf("marshaling top prediction: %w", err)
	}

	r.CreatedAt = time.Now().UTC()
	r.ID = ids.NewAt(r.CreatedAt)

	var imageRef sql.NullString
	if r.ImageRef != "" {
		imageRef = sql.NullString{String: r.ImageRef, Valid: true}
	}

	query := `
		INSERT INTO records (id, account_id, file_name, scores_json, top_prediction_json, image_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.AccountID,
		r.SourceFileName,
		string(scoresJSON),
		string(topJSON),
		imageRef,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrForeignKey, r.AccountID)
		}
		return "", fmt.Errorf("inserting record: %w", err)
	}

	s.logger.Debug("appended record", "id", r.ID, "account", r.AccountID, "top", r.Top.Label)
	return r.ID, nil
}

// ListRecordsForAccount returns the account's records, newest first.
func (s *SQLiteStore) ListRecordsForAccount(ctx context.Context, accountID string) ([]*Record, error) {
	query := `
		SELECT id, account_id, file_name, scores_json, top_prediction_json, image_ref, created_at
		FROM records
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// CountByOutcome tallies the account's records by top label.
func (s *SQLiteStore) CountByOutcome(ctx context.Context, accountID string) (OutcomeCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN json_extract(top_prediction_json, '$.label') = ? THEN 1 ELSE 0 END), 0)
		FROM records
		WHERE account_id = ?
	`
	var counts OutcomeCounts
	if err := s.db.QueryRowContext(ctx, query, HealthyLabel, accountID).Scan(&counts.Total, &counts.Healthy); err != nil {
		return OutcomeCounts{}, fmt.Errorf("counting records: %w", err)
	}
	counts.Abnormal = counts.Total - counts.Healthy
	return counts, nil
}

// DeleteAccountRecords removes every record owned by accountID.
func (s *SQLiteStore) DeleteAccountRecords(ctx context.Context, accountID string) (int, error) {
	n, err := deleteRecordsFor(ctx, s.db, accountID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("deleted account records", "account", accountID, "count", n)
	return n, nil
}

// DeleteRecord removes one record, but only if accountID owns it.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, accountID, recordID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ? AND account_id = ?", recordID, accountID)
	if err != nil {
		return false, fmt.Errorf("deleting record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return affected > 0, nil
}

func deleteRecordsFor(ctx context.Context, db dbtx, accountID string) (int, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM records WHERE account_id = ?", accountID)
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(affected), nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var r Record
	var scoresJSON, topJSON, createdAt string
	var imageRef sql.NullString

	if err := scanner.Scan(&r.ID, &r.AccountID, &r.SourceFileName, &scoresJSON, &topJSON, &imageRef, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(scoresJSON), &r.Scores); err != nil {
		return nil, fmt.Errorf("unmarshaling scores for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(topJSON), &r.Top); err != nil {
		return nil, fmt.Errorf("unmarshaling top prediction for %s: %w", r.ID, err)
	}
	r.ImageRef = imageRef.String

	var err error
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
