// Package retry wraps any operation with bounded exponential-backoff
// retries, matching the policy the teacher inlines per call-site in
// pkg/mcp/recovery.go, but generalized into one reusable runner.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/sre-incident/orchestrator/pkg/apperrors"
)

// Policy configures a retry run.
type Policy struct {
	MaxAttempts      int           // default 3
	InitialDelay     time.Duration // default 1s
	MaxDelay         time.Duration // default 10s
	ExponentialBase  float64       // default 2.0
	IsRetryable      func(error) bool
}

// DefaultPolicy matches spec.md §4.1's defaults. Only errors apperrors
// classifies as Kind Transient are retried — a deterministic failure like
// ErrMaxIterationsExceeded or a tool-not-found error gets the same answer on
// every attempt, so retrying it only multiplies LLM/tool calls for no gain.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
		IsRetryable:     apperrors.IsRetryable,
	}
}

// Run executes fn, retrying on retryable failures per policy. Each attempt
// and each failure is logged with correlation_id and function_name, per
// spec.md §4.1. The sleep between attempts is cancellable via ctx.
func Run[T any](ctx context.Context, policy Policy, correlationID, functionName string, fn func(context.Context) (T, error)) (T, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	logger := slog.Default().With(
		"correlation_id", correlationID,
		"function_name", functionName,
	)

	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		logger.Info("retry attempt", "attempt", attempt, "max_attempts", policy.MaxAttempts)

		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		retryable := policy.IsRetryable == nil || policy.IsRetryable(err)
		logger.Warn("retry attempt failed",
			"attempt", attempt, "max_attempts", policy.MaxAttempts,
			"retryable", retryable, "error", err)

		if !retryable || attempt == policy.MaxAttempts {
			return zero, lastErr
		}

		delay := backoffDelay(policy, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// backoffDelay computes min(initial_delay * base^(attempt-1), max_delay).
func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= policy.ExponentialBase
	}
	if max := float64(policy.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}
