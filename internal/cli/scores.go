// ABOUTME: Parses classifier scores given on the command line
// ABOUTME: Accepts comma-separated Label=confidence pairs

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/retinal-ledger/internal/store"
)

// ParseScores parses "Healthy=0.9,Type-1=0.1" into scores, keeping order.
// Range checks are left to the history service.
func ParseScores(s string) ([]store.Score, error) {
	var scores []store.Score
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		label, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("score %q: expected label=confidence", pair)
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", pair, err)
		}
		scores = append(scores, store.Score{Label: strings.TrimSpace(label), Confidence: conf})
	}
	return scores, nil
}
