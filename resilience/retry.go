// Package resilience wraps fallible operations with bounded
// exponential-backoff retry. Only failures classified as transient by
// core.IsTransient trigger another attempt.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/trace"
)

// Retry executes fn until it succeeds, a non-retryable error occurs, the
// attempt budget is exhausted, or the context is canceled. It returns the
// number of attempts actually made alongside the terminal error, and emits
// one trace event per attempt.
//
// Retry holds no state across invocations and is safe to call concurrently
// for independent operations.
func Retry(ctx context.Context, policy core.RetryConfig, recorder trace.Recorder, worker string, fn func(context.Context) error) (int, error) {
	if recorder == nil {
		recorder = trace.NopRecorder{}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	correlationID := trace.CorrelationID(ctx)
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// Backoff before every attempt but the first
		if attempt > 1 {
			delay := backoffDelay(policy, attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt - 1, ctx.Err()
			case <-timer.C:
			}
		}

		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			recorder.Emit(trace.Event{
				CorrelationID: correlationID,
				Stage:         trace.StageAttempt,
				Worker:        worker,
				Attempt:       attempt,
				Outcome:       trace.OutcomeSuccess,
			})
			return attempt, nil
		}
		lastErr = err

		if !core.IsTransient(err) {
			recorder.Emit(trace.Event{
				CorrelationID: correlationID,
				Stage:         trace.StageAttempt,
				Worker:        worker,
				Attempt:       attempt,
				Outcome:       trace.OutcomeNonRetryable,
				Detail:        err.Error(),
			})
			return attempt, err
		}

		recorder.Emit(trace.Event{
			CorrelationID: correlationID,
			Stage:         trace.StageAttempt,
			Worker:        worker,
			Attempt:       attempt,
			Outcome:       trace.OutcomeTransient,
			Detail:        err.Error(),
		})
	}

	return policy.MaxAttempts, fmt.Errorf("%d attempts failed, last error %v: %w",
		policy.MaxAttempts, lastErr, core.ErrMaxAttemptsExceeded)
}

// backoffDelay computes the sleep before attempt k (k >= 2):
// BaseDelay * GrowthFactor^(k-2), perturbed by a uniform multiplicative
// jitter in [1-Jitter, 1+Jitter], clamped to MaxDelay.
func backoffDelay(policy core.RetryConfig, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(policy.GrowthFactor, float64(attempt-2))

	if policy.Jitter > 0 {
		factor := 1 - policy.Jitter + 2*policy.Jitter*rand.Float64()
		delay *= factor
	}

	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
