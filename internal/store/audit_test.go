package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_AppendAndList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	older := &AuditEntry{
		Actor:      "ops",
		Action:     AuditExportAccount,
		TargetType: "account",
		TargetID:   "acct-1",
		Timestamp:  time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, s.AppendAuditLog(ctx, older))
	assert.NotEmpty(t, older.ID)

	newer := &AuditEntry{
		Actor:      "ops",
		Action:     AuditDeleteAccount,
		TargetType: "account",
		TargetID:   "acct-1",
		Detail:     map[string]any{"records": 3},
	}
	require.NoError(t, s.AppendAuditLog(ctx, newer))
	assert.False(t, newer.Timestamp.IsZero())

	entries, err := s.ListAuditLog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, AuditDeleteAccount, entries[0].Action)
	assert.Equal(t, float64(3), entries[0].Detail["records"])
	assert.Equal(t, AuditExportAccount, entries[1].Action)
	assert.Nil(t, entries[1].Detail)
}

func TestAuditLog_Limit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendAuditLog(ctx, &AuditEntry{
			Actor: "ops", Action: AuditWipeAll, TargetType: "all", TargetID: "*",
		}))
	}

	entries, err := s.ListAuditLog(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditLog_SurvivesAccountWipe(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestAccount(t, s, "Ann", "ann@x.com")
	require.NoError(t, s.AppendAuditLog(ctx, &AuditEntry{
		Actor: "ops", Action: AuditWipeAll, TargetType: "all", TargetID: "*",
	}))

	_, _, err := s.DeleteAllAccounts(ctx)
	require.NoError(t, err)

	entries, err := s.ListAuditLog(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 100, normalizeAuditLimit(-5))
	assert.Equal(t, 50, normalizeAuditLimit(50))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
}
