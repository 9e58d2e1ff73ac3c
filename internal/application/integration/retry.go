package integration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

// RetryPolicy is a linear retry policy: a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep blocks for d; tests replace it to avoid real delays
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns 3 attempts with a 5 second delay
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
		Sleep:       SleepContext,
	}
}

// SleepContext blocks for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryCoordinator runs a whole reconciliation attempt under a RetryPolicy and
// notifies operators when it fails terminally.
type RetryCoordinator struct {
	policy   RetryPolicy
	notifier integration.FailureNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewRetryCoordinator creates a retry coordinator. notifier may be nil.
func NewRetryCoordinator(policy RetryPolicy, notifier integration.FailureNotifier, logger *zap.Logger) *RetryCoordinator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Sleep == nil {
		policy.Sleep = SleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryCoordinator{
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Policy returns the coordinator's policy
func (c *RetryCoordinator) Policy() RetryPolicy {
	return c.policy
}

// RetryOutcome reports how many attempts a call took
type RetryOutcome struct {
	Attempts int
	Err      error
}

// WithRetry calls fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. On terminal failure the last error is returned and a
// failure notice is sent.
func (c *RetryCoordinator) WithRetry(ctx context.Context, orderID, externalID string, fn func(ctx context.Context, attempt int) error) RetryOutcome {
	var err error
	attempt := 0
	for attempt < c.policy.MaxAttempts {
		attempt++
		err = fn(ctx, attempt)
		if err == nil {
			return RetryOutcome{Attempts: attempt}
		}
		if !integration.IsRetryable(err) {
			break
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		c.logger.Warn("Reconcile attempt failed, retrying",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Duration("delay", c.policy.Delay),
			zap.Error(err),
		)
		if sleepErr := c.policy.Sleep(ctx, c.policy.Delay); sleepErr != nil {
			break
		}
	}

	c.notify(ctx, integration.FailureNotice{
		OrderID:    orderID,
		ExternalID: externalID,
		Attempts:   attempt,
		ErrorCode:  integration.ErrorCode(err),
		Cause:      err,
		OccurredAt: c.now(),
	})
	return RetryOutcome{Attempts: attempt, Err: err}
}

func (c *RetryCoordinator) notify(ctx context.Context, notice integration.FailureNotice) {
	c.logger.Error("Reconcile failed",
		zap.String("order_id", notice.OrderID),
		zap.Int("attempts", notice.Attempts),
		zap.String("error_code", notice.ErrorCode),
		zap.Error(notice.Cause),
	)
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyFailure(ctx, notice); err != nil {
		c.logger.Warn("Failure notification not delivered",
			zap.String("order_id", notice.OrderID),
			zap.Error(err),
		)
	}
}
