package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

func TestWithRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), quickRetry(), quietLogger(), "op", func() error {
		calls++
		if calls < 3 {
			return ai.ErrUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), quickRetry(), quietLogger(), "op", func() error {
		calls++
		return ticketing.ErrNotFound
	})
	if !errors.Is(err, ticketing.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), quickRetry(), quietLogger(), "op", func() error {
		calls++
		return ai.ErrRateLimited
	})
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryWrappedCauseCounts(t *testing.T) {
	calls := 0
	wrapped := errors.Join(errors.New("classification failed"), ai.ErrTimeout)
	err := withRetry(context.Background(), quickRetry(), quietLogger(), "op", func() error {
		calls++
		if calls == 1 {
			return wrapped
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (wrapped timeout is transient)", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	done := make(chan error, 1)
	go func() {
		done <- withRetry(ctx, policy, quietLogger(), "op", func() error {
			calls++
			return ai.ErrUnavailable
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (cancel during backoff)", calls)
	}
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	if got := p.delay(1); got != 100*time.Millisecond {
		t.Fatalf("delay(1) = %v", got)
	}
	if got := p.delay(2); got != 200*time.Millisecond {
		t.Fatalf("delay(2) = %v", got)
	}
	if got := p.delay(3); got != 350*time.Millisecond {
		t.Fatalf("delay(3) = %v, want cap", got)
	}
	if got := p.delay(9); got != 350*time.Millisecond {
		t.Fatalf("delay(9) = %v, want cap", got)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ai.ErrTimeout, true},
		{ai.ErrRateLimited, true},
		{ai.ErrUnavailable, true},
		{ticketing.ErrUnavailable, true},
		{mailbox.ErrUnavailable, true},
		{ticketing.ErrNotFound, false},
		{mailbox.ErrNotFound, false},
		{ai.ErrInvalidRequest, false},
		{ai.ErrUnauthorized, false},
		{errors.New("anything else"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Fatalf("isTransient(%v) = %t, want %t", tc.err, got, tc.want)
		}
	}
}

func TestInFlightKeys(t *testing.T) {
	f := newInFlight()
	if err := f.begin("ticket:1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.begin("ticket:2"); err != nil {
		t.Fatalf("distinct keys must not collide: %v", err)
	}
	if err := f.begin("ticket:1"); !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("err = %v, want ErrAlreadyInProgress", err)
	}
	f.end("ticket:1")
	if err := f.begin("ticket:1"); err != nil {
		t.Fatalf("key must be reusable after end: %v", err)
	}
}
