// Package retry provides a bounded constant-interval retry policy for
// "create then wait for ready" style resources.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrAttemptsExhausted is returned by Do once a policy has used up its
// attempt budget without the operation reporting done.
var ErrAttemptsExhausted = errors.New("retry: attempt budget exhausted")

// Policy describes a bounded wait: at most MaxAttempts invocations of the
// operation, with a constant Interval between them. Exhaustion is a hard
// terminal state, never a silent partial success.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Operation reports done=true once the awaited condition holds. A non-nil
// error aborts the loop immediately.
type Operation func(ctx context.Context) (done bool, err error)

// Do runs op until it reports done, fails, the context is cancelled, or the
// attempt budget is exhausted. An operation that is already done returns
// after a single invocation without sleeping.
func (p Policy) Do(ctx context.Context, op Operation) error {
	if p.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		done, err := op(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return ErrAttemptsExhausted
}
