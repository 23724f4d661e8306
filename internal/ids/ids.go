// ABOUTME: Monotonic ULID generation for record identifiers
// ABOUTME: IDs minted in the same process sort in creation order

package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lexicographically sortable identifier stamped with the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns an identifier stamped with t. Successive calls with the same
// millisecond still increase monotonically.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
