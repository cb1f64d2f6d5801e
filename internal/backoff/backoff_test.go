package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
		ok      bool
	}{
		{"first retry", New(5, 100*time.Millisecond, 800*time.Millisecond), 1, 100 * time.Millisecond, true},
		{"doubles", New(5, 100*time.Millisecond, 800*time.Millisecond), 3, 400 * time.Millisecond, true},
		{"capped", New(5, 100*time.Millisecond, 800*time.Millisecond), 5, 800 * time.Millisecond, true},
		{"past max", New(5, 100*time.Millisecond, 800*time.Millisecond), 6, 0, false},
		{"attempt zero", New(5, 100*time.Millisecond, 0), 0, 0, false},
		{"negative attempt", New(5, 100*time.Millisecond, 0), -1, 0, false},
		{"uncapped growth", New(10, time.Second, 0), 4, 8 * time.Second, true},
		{"single retry", New(1, 2*time.Second, 0), 1, 2 * time.Second, true},
		{"single retry exhausted", New(1, 2*time.Second, 0), 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.policy.Delay(tt.attempt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestPolicy_ExactCount(t *testing.T) {
	p := New(7, 50*time.Millisecond, 2*time.Second)

	var delays []time.Duration
	for attempt := 1; ; attempt++ {
		d, ok := p.Delay(attempt)
		if !ok {
			break
		}
		delays = append(delays, d)
	}

	require.Len(t, delays, 7)
	for i, d := range delays {
		assert.LessOrEqual(t, d, 2*time.Second)
		if i > 0 {
			assert.GreaterOrEqual(t, d, delays[i-1], "delays must be non-decreasing")
		}
	}
}

func TestPolicy_Deterministic(t *testing.T) {
	p := New(5, 100*time.Millisecond, time.Second)
	for attempt := 1; attempt <= 5; attempt++ {
		a, _ := p.Delay(attempt)
		b, _ := p.Delay(attempt)
		assert.Equal(t, a, b)
	}
}

func TestPolicy_Jitter(t *testing.T) {
	base := New(5, 400*time.Millisecond, 0)
	p := base.WithJitter(rand.NewSource(42))

	for attempt := 1; attempt <= 5; attempt++ {
		full, _ := base.Delay(attempt)
		d, ok := p.Delay(attempt)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, full/2)
		assert.LessOrEqual(t, d, full)
	}

	// Same seed, same schedule.
	p1 := base.WithJitter(rand.NewSource(7))
	p2 := base.WithJitter(rand.NewSource(7))
	for attempt := 1; attempt <= 5; attempt++ {
		a, _ := p1.Delay(attempt)
		b, _ := p2.Delay(attempt)
		assert.Equal(t, a, b)
	}
}
