// ABOUTME: Classification history service writing durable records and mirroring them to cache
// ABOUTME: Reads fall back to the local cache when the durable store has nothing or fails

package history

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/2389/retinal-ledger/internal/auth"
	"github.com/2389/retinal-ledger/internal/cache"
	"github.com/2389/retinal-ledger/internal/store"
)

// Service records and lists an account's classification results.
type Service struct {
	records store.RecordStore
	cache   *cache.RecordCache
	logger  *slog.Logger
}

// New creates a history service.
func New(records store.RecordStore, recordCache *cache.RecordCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records: records,
		cache:   recordCache,
		logger:  logger.With("component", "history"),
	}
}

// RecordClassification stores one classification result for accountID.
// The stored top prediction is always the highest-confidence score; a
// non-nil top that names anything else is rejected. The durable write must succeed;
// a failed cache mirror is logged and otherwise ignored.
func (s *Service) RecordClassification(ctx context.Context, accountID, fileName string, scores []store.Score, top *store.Score, imageRef string) (*store.Record, error) {
	if err := validateScores(scores); err != nil {
		return nil, err
	}

	best := TopScore(scores)
	if top != nil && *top != best {
		return nil, &auth.ValidationError{
			Field:   "scores",
			Message: fmt.Sprintf("top prediction %q does not match highest score %q", top.Label, best.Label),
		}
	}

	r := &store.Record{
		AccountID:      accountID,
		SourceFileName: fileName,
		Scores:         append([]store.Score(nil), scores...),
		Top:            best,
		ImageRef:       imageRef,
	}
	if _, err := s.records.AppendRecord(ctx, r); err != nil {
		return nil, fmt.Errorf("recording classification: %w", err)
	}

	if err := s.cache.Append(ctx, accountID, r); err != nil {
		s.logger.Warn("failed to mirror record to cache", "account", accountID, "record", r.ID, "error", err)
	}

	s.logger.Info("recorded classification", "account", accountID, "record", r.ID, "top", r.Top.Label)
	return r, nil
}

// ListRecords returns the account's records, newest first. The durable store
// is authoritative; the cache answers when the store fails or holds nothing
// for the account yet.
func (s *Service) ListRecords(ctx context.Context, accountID string) ([]*store.Record, error) {
	records, err := s.records.ListRecordsForAccount(ctx, accountID)
	if err != nil {
		s.logger.Warn("durable read failed, serving cached records", "account", accountID, "error", err)
		return s.cachedRecords(ctx, accountID, err)
	}
	if len(records) > 0 {
		return records, nil
	}
	return s.cachedRecords(ctx, accountID, nil)
}

// Stats returns healthy/abnormal counts from the durable store.
func (s *Service) Stats(ctx context.Context, accountID string) (store.OutcomeCounts, error) {
	counts, err := s.records.CountByOutcome(ctx, accountID)
	if err != nil {
		return store.OutcomeCounts{}, fmt.Errorf("counting outcomes: %w", err)
	}
	return counts, nil
}

// cachedRecords reads the cache. durableErr is returned only when the cache
// cannot answer either.
func (s *Service) cachedRecords(ctx context.Context, accountID string, durableErr error) ([]*store.Record, error) {
	cached, err := s.cache.Load(ctx, accountID)
	if err != nil {
		if durableErr != nil {
			return nil, fmt.Errorf("listing records: %w", durableErr)
		}
		s.logger.Warn("cache read failed", "account", accountID, "error", err)
		return nil, nil
	}
	return cached, nil
}

// TopScore returns the highest-confidence score. Ties go to the earliest
// entry. An empty slice yields the zero Score.
func TopScore(scores []store.Score) store.Score {
	var best store.Score
	for i, sc := range scores {
		if i == 0 || sc.Confidence > best.Confidence {
			best = sc
		}
	}
	return best
}

func validateScores(scores []store.Score) error {
	if len(scores) == 0 {
		return &auth.ValidationError{Field: "scores", Message: "at least one score is required"}
	}
	for _, sc := range scores {
		if sc.Label == "" {
			return &auth.ValidationError{Field: "scores", Message: "score label is required"}
		}
		if math.IsNaN(sc.Confidence) || sc.Confidence < 0 || sc.Confidence > 1 {
			return &auth.ValidationError{
				Field:   "scores",
				Message: fmt.Sprintf("confidence for %q must be between 0 and 1", sc.Label),
			}
		}
	}
	return nil
}
