package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNewAt_EmbedsTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := ulid.Parse(NewAt(at))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), id.Time())
}
