package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendTestRecord stores a record whose top label is the given label.
func appendTestRecord(t *testing.T, s *SQLiteStore, accountID, label string) *Record {
	t.Helper()
	r := &Record{
		AccountID:      accountID,
		SourceFileName: "img.png",
		Scores:         []Score{{Label: label, Confidence: 0.8}, {Label: "Other", Confidence: 0.2}},
		Top:            Score{Label: label, Confidence: 0.8},
	}
	_, err := s.AppendRecord(context.Background(), r)
	require.NoError(t, err)
	return r
}

func TestRecordStore_AppendAndList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ann := createTestAccount(t, s, "Ann", "ann@x.com")

	r := &Record{
		AccountID:      ann.ID,
		SourceFileName: "fundus.png",
		Scores:         []Score{{Label: "Healthy", Confidence: 0.9}, {Label: "Type-1", Confidence: 0.1}},
		Top:            Score{Label: "Healthy", Confidence: 0.9},
		ImageRef:       "data:image/png;base64,AAAA",
	}
	id, err := s.AppendRecord(ctx, r)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, r.ID)

	records, err := s.ListRecordsForAccount(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, ann.ID, got.AccountID)
	assert.Equal(t, "fundus.png", got.SourceFileName)
	assert.Equal(t, r.Scores, got.Scores)
	assert.Equal(t, r.Top, got.Top)
	assert.Equal(t, "data:image/png;base64,AAAA", got.ImageRef)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
}

func TestRecordStore_Append_UnknownAccount(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.AppendRecord(context.Background(), &Record{
		AccountID: "ghost",
		Scores:    []Score{{Label: "Healthy", Confidence: 1}},
		Top:       Score{Label: "Healthy", Confidence: 1},
	})
	assert.ErrorIs(t, err, ErrForeignKey)
}

func TestRecordStore_List_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ann := createTestAccount(t, s, "Ann", "ann@x.com")

	first := appendTestRecord(t, s, ann.ID, "Healthy")
	second := appendTestRecord(t, s, ann.ID, "Type-1")
	third := appendTestRecord(t, s, ann.ID, "Type-2")

	records, err := s.ListRecordsForAccount(context.Background(), ann.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, third.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.Equal(t, first.ID, records[2].ID)
}

func TestRecordStore_List_Isolated(t *testing.T) {
	s := setupTestStore(t)
	ann := createTestAccount(t, s, "Ann", "ann@x.com")
	bob := createTestAccount(t, s, "Bob", "bob@x.com")

	appendTestRecord(t, s, ann.ID, "Healthy")

	records, err := s.ListRecordsForAccount(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordStore_CountByOutcome(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ann := createTestAccount(t, s, "Ann", "ann@x.com")

	appendTestRecord(t, s, ann.ID, HealthyLabel)
	appendTestRecord(t, s, ann.ID, HealthyLabel)
	appendTestRecord(t, s, ann.ID, "Type-1")

	counts, err := s.CountByOutcome(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCounts{Total: 3, Healthy: 2, Abnormal: 1}, counts)

	empty, err := s.CountByOutcome(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCounts{}, empty)
}

func TestRecordStore_DeleteAccountRecords(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ann := createTestAccount(t, s, "Ann", "ann@x.com")
	appendTestRecord(t, s, ann.ID, "Healthy")
	appendTestRecord(t, s, ann.ID, "Healthy")

	n, err := s.DeleteAccountRecords(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Account itself survives.
	_, err = s.GetAccountByID(ctx, ann.ID)
	require.NoError(t, err)
}

func TestRecordStore_DeleteRecord_ScopedToOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ann := createTestAccount(t, s, "Ann", "ann@x.com")
	bob := createTestAccount(t, s, "Bob", "bob@x.com")
	r := appendTestRecord(t, s, ann.ID, "Healthy")

	deleted, err := s.DeleteRecord(ctx, bob.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteRecord(ctx, ann.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, err := s.ListRecordsForAccount(ctx, ann.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}
