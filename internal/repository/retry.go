package repository

import (
	"context"
	"errors"
	"math/rand"
	"time"

	apperrors "carwash/internal/errors"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy bounds the retries of a serializable transaction.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, BaseDelay: 20 * time.Millisecond}

// serialization_failure and deadlock_detected.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// withRetry runs attempt until it succeeds, fails with a non-retryable error or the policy is
// exhausted, in which case ErrConflict is returned. Backoff doubles from BaseDelay with jitter.
func withRetry(ctx context.Context, p RetryPolicy, attempt func() error) error {
	delay := p.BaseDelay
	for i := 0; ; i++ {
		err := attempt()
		if err == nil || !isRetryable(err) {
			return err
		}
		if i >= p.MaxRetries {
			log.WithError(err).WithField("attempts", i+1).Warn("giving up on serializable transaction")
			return apperrors.ErrConflict.WithDetails("attempts", i+1)
		}
		log.WithError(err).WithField("attempt", i+1).Debug("serialization failure, retrying")

		wait := delay
		if delay > 0 {
			wait += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
}
