package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// RetryPolicy drives retries of upstream calls. Only transient failures are
// retried; validation and not-found errors surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 8 * time.Second
	}
	return p
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// isTransient reports whether err is worth retrying: provider overload,
// throttling, or timeouts. Wrapped causes count, so a classification failure
// caused by a provider timeout is retried while one caused by bad input is
// not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ai.ErrTimeout) ||
		errors.Is(err, ai.ErrRateLimited) ||
		errors.Is(err, ai.ErrUnavailable) ||
		errors.Is(err, ticketing.ErrUnavailable) ||
		errors.Is(err, mailbox.ErrUnavailable)
}

// withRetry runs fn up to MaxAttempts times with doubling backoff between
// transient failures. Cancellation during backoff returns the context error.
func withRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func() error) error {
	policy = policy.normalized()

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= policy.MaxAttempts {
			return err
		}
		delay := policy.delay(attempt)
		logger.Warn("transient failure, retrying",
			"op", op, "attempt", attempt, "max_attempts", policy.MaxAttempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
