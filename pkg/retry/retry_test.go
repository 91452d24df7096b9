package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/swaperr"
)

func TestShouldRetry(t *testing.T) {
	for _, k := range swaperr.Kinds() {
		want := k == swaperr.KindNetworkError || k == swaperr.KindQuoteExpired
		assert.Equal(t, want, ShouldRetry(k), k)
	}
}

func TestDelayNoRetry(t *testing.T) {
	p := NewPolicy(time.Second, 30*time.Second)

	d, ok := p.Delay(swaperr.KindSlippageExceeded, 1)
	assert.False(t, ok)
	assert.Zero(t, d)
}

func TestDelayBounds(t *testing.T) {
	base, ceiling := time.Second, 30*time.Second
	p := NewPolicy(base, ceiling)

	for i := 0; i < 50; i++ {
		prev := time.Duration(0)
		for attempt := 1; attempt <= 8; attempt++ {
			d, ok := p.Delay(swaperr.KindNetworkError, attempt)
			require.True(t, ok)

			floor := base * time.Duration(1<<(attempt-1))
			if floor > ceiling {
				floor = ceiling
			}
			assert.GreaterOrEqual(t, d, floor, "attempt %d", attempt)
			assert.Less(t, d, floor+time.Second, "attempt %d", attempt)

			assert.GreaterOrEqual(t, p.Backoff(attempt), prev)
			prev = p.Backoff(attempt)
		}
	}
}

func TestBackoffCeiling(t *testing.T) {
	p := NewPolicy(time.Second, 10*time.Second)

	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(5))
	assert.Equal(t, 10*time.Second, p.Backoff(100))
}

func TestDelayDeterministicJitter(t *testing.T) {
	p := NewPolicy(500*time.Millisecond, 0)
	p.jitter = func() time.Duration { return 250 * time.Millisecond }

	d, ok := p.Delay(swaperr.KindQuoteExpired, 3)
	require.True(t, ok)
	assert.Equal(t, 2250*time.Millisecond, d)
}
