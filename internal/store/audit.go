// ABOUTME: Audit log entity and store methods for tracking maintenance actions
// ABOUTME: Records which admin deleted, wiped or exported which account's data

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditDeleteAccount AuditAction = "delete_account"
	AuditDeleteRecords AuditAction = "delete_records"
	AuditWipeAll       AuditAction = "wipe_all"
	AuditExportAccount AuditAction = "export_account"
)

// AuditEntry is one maintenance action. Actor is the admin token subject;
// TargetType is "account" or "all".
type AuditEntry struct {
	ID         string
	Actor      string
	Action     AuditAction
	TargetType string
	TargetID   string
	Timestamp  time.Time
	Detail     map[string]any
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AppendAuditLog stores e, assigning ID and Timestamp when they are unset.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	detail, err := encodeDetail(e.Detail)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (audit_id, actor, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Actor, string(e.Action), e.TargetType, e.TargetID, formatTime(e.Timestamp), detail)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("audit", "action", e.Action, "actor", e.Actor, "target_type", e.TargetType, "target_id", e.TargetID)
	return nil
}

// ListAuditLog returns up to limit entries, newest first. A non-positive
// limit means defaultAuditLimit; larger requests are capped at maxAuditLimit.
func (s *SQLiteStore) ListAuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT audit_id, actor, action, target_type, target_id, ts, detail_json
		FROM audit_log
		ORDER BY ts DESC, audit_id DESC
		LIMIT ?
	`, normalizeAuditLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e      AuditEntry
			action string
			ts     string
			detail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Actor, &action, &e.TargetType, &e.TargetID, &ts, &detail); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Action = AuditAction(action)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if e.Detail, err = decodeDetail(detail); err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return entries, nil
}

func normalizeAuditLimit(limit int) int {
	if limit <= 0 {
		return defaultAuditLimit
	}
	return min(limit, maxAuditLimit)
}

func encodeDetail(detail map[string]any) (sql.NullString, error) {
	if detail == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling audit detail: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeDetail(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid {
		return nil, nil
	}
	var detail map[string]any
	if err := json.Unmarshal([]byte(raw.String), &detail); err != nil {
		return nil, fmt.Errorf("unmarshaling detail: %w", err)
	}
	return detail, nil
}
