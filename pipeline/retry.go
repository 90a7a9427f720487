package pipeline

import (
	"math"
	"math/rand"
	"time"
)

// Sleeper is an interface for sleeping, allowing tests to override delays.
type Sleeper interface {
	Sleep(d time.Duration)
}

// realSleeper implements Sleeper using time.Sleep.
type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// DefaultSleeper is the production sleeper.
var DefaultSleeper Sleeper = realSleeper{}

// BackoffConfig controls delay calculation between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration // first retry delay
	Factor       float64       // multiplier for subsequent delays
	MaxDelay     time.Duration // cap on delay
	Jitter       bool          // add random jitter
}

// DelayForAttempt calculates the delay for a given retry attempt (1-indexed).
func (bc BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	if bc.InitialDelay == 0 {
		return 0
	}
	delay := float64(bc.InitialDelay) * math.Pow(bc.Factor, float64(attempt-1))
	if delay > float64(bc.MaxDelay) {
		delay = float64(bc.MaxDelay)
	}
	if bc.Jitter {
		// jitter: delay * uniform(0.5, 1.5)
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay)
}

// RetryPolicy controls how many attempts each stage gets and how delays
// between attempts are calculated. Retry decisions are owned entirely by
// the engine; adapters and handlers never retry on their own.
type RetryPolicy struct {
	MaxRetries int // total attempts allowed per stage
	Backoff    BackoffConfig
}

// DefaultBackoff is the production backoff configuration.
var DefaultBackoff = BackoffConfig{
	InitialDelay: 200 * time.Millisecond,
	Factor:       2.0,
	MaxDelay:     60 * time.Second,
	Jitter:       true,
}
