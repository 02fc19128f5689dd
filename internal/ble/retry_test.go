package ble

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

// lateScanner advertises the hub only from the given scan onward.
type lateScanner struct {
	scans   int
	visible int
}

func (s *lateScanner) Scan(ctx context.Context, fn func(Advertisement) bool) error {
	s.scans++
	if s.scans >= s.visible {
		fn(Advertisement{Address: "BB", LocalName: "Train Base"})
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	b := Backoff{InitialDelay: 250 * time.Millisecond, Multiplier: 2.0, MaxDelay: 5 * time.Second}
	if got := b.Delay(1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := b.Delay(2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := b.Delay(3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := b.Delay(6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	b := Backoff{InitialDelay: 250 * time.Millisecond, Multiplier: 2.0, MaxDelay: 5 * time.Second, Jitter: true}
	rng := rand.New(rand.NewSource(7))
	got := b.Delay(2, rng)
	if got < 250*time.Millisecond || got > 750*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestFindHubRetryFindsLateHub(t *testing.T) {
	testlog.Start(t)
	s := &lateScanner{visible: 3}
	b := Backoff{InitialDelay: time.Millisecond, Multiplier: 1.0, Attempts: 5}
	adv, err := FindHubRetry(context.Background(), s, "Train Base", 5*time.Millisecond, b)
	if err != nil {
		t.Fatalf("find hub: %v", err)
	}
	if adv.Address != "BB" || s.scans != 3 {
		t.Fatalf("got %s after %d scans", adv.Address, s.scans)
	}
}

func TestFindHubRetryGivesUp(t *testing.T) {
	testlog.Start(t)
	s := &lateScanner{visible: 10}
	b := Backoff{InitialDelay: time.Millisecond, Multiplier: 1.0, Attempts: 2}
	_, err := FindHubRetry(context.Background(), s, "Train Base", 5*time.Millisecond, b)
	if !errors.Is(err, ErrHubNotFound) {
		t.Fatalf("expected ErrHubNotFound, got %v", err)
	}
	if s.scans != 2 {
		t.Fatalf("expected 2 scans, got %d", s.scans)
	}
}

func TestFindHubRetryStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &lateScanner{visible: 10}
	_, err := FindHubRetry(ctx, s, "Train Base", time.Second, Backoff{InitialDelay: time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
