package ble

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	logs "github.com/danmuck/duploctl/internal/logging"
)

// Backoff spaces repeated hub scans.
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
	// Attempts caps the number of scans; zero retries until ctx ends.
	Attempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
		Jitter:       true,
		Attempts:     5,
	}
}

// Delay returns the wait before attempt N (1-based).
func (b Backoff) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return b.InitialDelay
	}
	if b.InitialDelay <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// FindHubRetry runs FindHub in scanTimeout windows until the hub appears,
// the attempts run out or ctx ends. Only ErrHubNotFound is retried.
func FindHubRetry(ctx context.Context, s Scanner, name string, scanTimeout time.Duration, b Backoff) (Advertisement, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
		adv, err := FindHub(scanCtx, s, name)
		cancel()
		if err == nil {
			return adv, nil
		}
		if !errors.Is(err, ErrHubNotFound) || ctx.Err() != nil {
			return Advertisement{}, err
		}
		if b.Attempts > 0 && attempt >= b.Attempts {
			return Advertisement{}, err
		}

		delay := b.Delay(attempt, rng)
		logs.Warnf("ble.FindHubRetry attempt=%d name=%q retry_in=%s", attempt, name, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Advertisement{}, ctx.Err()
		case <-timer.C:
		}
	}
}
