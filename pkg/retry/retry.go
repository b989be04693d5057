// Package retry provides a small retry executor with exponential backoff.
// It is used for startup provisioning calls against the vector store, where a
// freshly started Weaviate may not be ready yet.
package retry

import (
	"context"
	"time"

	"github.com/graphmind/kgraph/pkg/logging"
)

// Policy defines the backoff behavior for retried operations.
type Policy struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// BackoffCoefficient multiplies the interval after each attempt.
	BackoffCoefficient float64

	// MaximumInterval caps the delay between attempts.
	MaximumInterval time.Duration

	// MaximumAttempts bounds the total number of attempts.
	MaximumAttempts int32
}

// DefaultPolicy returns a policy suited for waiting out a starting dependency.
func DefaultPolicy() *Policy {
	return &Policy{
		InitialInterval:    500 * time.Millisecond,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Second,
		MaximumAttempts:    5,
	}
}

// Executor handles the execution of operations with retries.
type Executor struct {
	policy *Policy
	logger logging.Logger
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy *Policy) *Executor {
	return &Executor{
		policy: policy,
		logger: logging.New(),
	}
}

// Execute runs the operation, retrying per the policy until it succeeds, the
// attempts are exhausted, or the context is cancelled.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	var lastErr error
	attempt := int32(0)
	currentInterval := e.policy.InitialInterval

	for attempt < e.policy.MaximumAttempts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
			attempt++

			if attempt >= e.policy.MaximumAttempts {
				break
			}

			nextInterval := time.Duration(float64(currentInterval) * e.policy.BackoffCoefficient)
			if nextInterval > e.policy.MaximumInterval {
				nextInterval = e.policy.MaximumInterval
			}

			e.logger.Debug(ctx, "Operation failed, scheduling retry", map[string]interface{}{
				"attempt":       attempt,
				"error":         err.Error(),
				"next_interval": nextInterval.String(),
			})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(currentInterval):
				currentInterval = nextInterval
			}
		}
	}

	return lastErr
}
