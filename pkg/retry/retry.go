// Package retry computes backoff delays for classified swap failures.
package retry

import (
	"math/rand/v2"
	"time"

	"cross-swap/pkg/swaperr"
)

const (
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 30 * time.Second

	maxJitter = time.Second
)

// Policy is exponential backoff with a ceiling plus up to one second of jitter.
// It never caps the number of attempts; that bound belongs to the caller.
type Policy struct {
	Base time.Duration
	Max  time.Duration

	// jitter returns a value in [0, maxJitter)
	jitter func() time.Duration
}

// NewPolicy creates a policy; zero values fall back to the defaults
func NewPolicy(base, ceiling time.Duration) *Policy {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxDelay
	}
	if ceiling < base {
		ceiling = base
	}
	return &Policy{
		Base: base,
		Max:  ceiling,
		jitter: func() time.Duration {
			return rand.N(maxJitter)
		},
	}
}

// ShouldRetry is true only for failures that are transient by nature
func ShouldRetry(kind swaperr.Kind) bool {
	return kind == swaperr.KindNetworkError || kind == swaperr.KindQuoteExpired
}

// Delay returns how long to wait before the given attempt (1-based).
// ok is false when the kind must not be retried automatically.
func (p *Policy) Delay(kind swaperr.Kind, attempt int) (time.Duration, bool) {
	if !ShouldRetry(kind) {
		return 0, false
	}
	return p.Backoff(attempt) + p.jitter(), true
}

// Backoff is the deterministic part of the delay: min(base*2^(attempt-1), max)
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base
	for i := 1; i < attempt; i++ {
		if d >= p.Max/2 {
			return p.Max
		}
		d *= 2
	}
	if d > p.Max {
		return p.Max
	}
	return d
}
