package jobx

import (
	"math/rand/v2"
	"time"
)

const (
	MinMaxAttempts     = 1
	MaxMaxAttempts     = 10
	DefaultMaxAttempts = 3

	minRetryDelay = time.Millisecond
)

// RetryPolicy computes exponential backoff with jitter:
// BaseDelay * 2^(attempts-1), capped at MaxDelay, then scaled by a
// random factor in [1-Jitter, 1+Jitter) and capped again.
type RetryPolicy struct {
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	Jitter             float64
	DefaultMaxAttempts int

	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:          30 * time.Second,
		MaxDelay:           time.Hour,
		Jitter:             0.2,
		DefaultMaxAttempts: DefaultMaxAttempts,
	}
}

// NextDelay returns the wait before the retry that follows a failure
// of attempt number attempts (1-based). The result is always >= 1ms.
func (p RetryPolicy) NextDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	base := max(p.BaseDelay, minRetryDelay)
	ceiling := p.MaxDelay
	if ceiling < base {
		ceiling = base
	}

	d := base
	for i := 1; i < attempts && d < ceiling; i++ {
		d *= 2
	}
	d = min(d, ceiling)

	if j := p.jitter(); j > 0 {
		factor := 1 + j*(2*p.random()-1)
		d = time.Duration(float64(d) * factor)
	}
	return max(min(d, ceiling), minRetryDelay)
}

// ClampMaxAttempts maps a caller-supplied ceiling into 1..10; zero
// selects the policy default.
func (p RetryPolicy) ClampMaxAttempts(n int) int {
	if n == 0 {
		n = p.DefaultMaxAttempts
		if n == 0 {
			n = DefaultMaxAttempts
		}
	}
	return min(max(n, MinMaxAttempts), MaxMaxAttempts)
}

func (p RetryPolicy) jitter() float64 {
	return min(max(p.Jitter, 0), 1)
}

func (p RetryPolicy) random() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}
