package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/store"
)

// RetryPolicy bounds the internal retry of store.ErrConflict.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the backoff before the second try; it doubles per try.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns 64 attempts starting at 1ms, capped at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 64,
		BaseDelay:   time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	}
}

// backoff returns the jittered delay after the given failed attempt.
// The delay is drawn uniformly from [d/2, d) where d = BaseDelay * 2^(attempt-1).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(d-half)
}

// withRetry runs fn until it returns something other than store.ErrConflict.
//
// Conflicts are expected under contention: a lost version race, a
// lookup-or-create that collided with another creator, or an id that was
// already taken. After MaxAttempts the last conflict is returned for the
// caller to translate.
func (e *Engine) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := e.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
		if attempt >= attempts {
			e.logger.WithFields(logrus.Fields{
				"op":       op,
				"attempts": attempt,
			}).WithError(err).Warn("storage conflict retries exhausted")
			return err
		}

		delay := e.retry.backoff(attempt)
		e.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   delay,
		}).Debug("storage conflict, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
