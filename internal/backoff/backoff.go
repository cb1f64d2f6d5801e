// Package backoff computes bounded exponential retry schedules.
// A Policy is a pure value: Delay(n) is deterministic for a given policy
// unless jitter is explicitly enabled, and jitter takes an injected rand
// source so tests can pin a seed.
package backoff

import (
	"math/rand"
	"time"
)

type Policy struct {
	// MaxRetries is the number of delays the schedule yields. Attempt
	// numbers past MaxRetries get no delay, signalling exhaustion.
	MaxRetries int

	// Base is the delay for the first retry. Each subsequent delay
	// doubles until Cap is reached.
	Base time.Duration

	// Cap bounds every delay. Zero means uncapped.
	Cap time.Duration

	rng *rand.Rand
}

// New returns a policy yielding exactly maxRetries delays.
func New(maxRetries int, base, cap time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Base: base, Cap: cap}
}

// WithJitter returns a copy of the policy that spreads each delay
// uniformly over [delay/2, delay]. The source is the only nondeterminism.
func (p Policy) WithJitter(src rand.Source) Policy {
	p.rng = rand.New(src)
	return p
}

// Delay returns the backoff delay after failed attempt n (1-based) and
// whether another attempt is permitted. ok is false once n exceeds
// MaxRetries; that is exhaustion, not an error.
func (p Policy) Delay(attempt int) (d time.Duration, ok bool) {
	if attempt < 1 || attempt > p.MaxRetries {
		return 0, false
	}

	d = p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Cap > 0 && d >= p.Cap {
			d = p.Cap
			break
		}
	}
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}

	if p.rng != nil && d > 0 {
		half := d / 2
		d = half + time.Duration(p.rng.Int63n(int64(half)+1))
	}

	return d, true
}
