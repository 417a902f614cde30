package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/imtaco/bedrud-client/internal/log"
)

type Retry interface {
	Do(ctx context.Context, name string, operation func() error) error
}

// Policy bounds an exponential backoff. MaxElapsed of zero retries until ctx ends.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

func New(logger *log.Logger, p Policy) Retry {
	if logger == nil {
		panic("logger is required")
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 50 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 2 * time.Second
	}
	return &retryImpl{logger: logger, policy: p}
}

type retryImpl struct {
	logger *log.Logger
	policy Policy
}

// Do runs operation once and only builds a backoff when that first attempt fails.
// Errors wrapped with Permanent stop the loop immediately.
func (r *retryImpl) Do(ctx context.Context, name string, operation func() error) error {
	err := operation()
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsed

	attempt := 1
	r.logger.Warn("operation failed, retrying", log.String("op", name), log.Error(err))
	return backoff.Retry(func() error {
		attempt++
		err := operation()
		if err != nil {
			r.logger.Debug("retry attempt failed",
				log.String("op", name),
				log.Int("attempt", attempt),
				log.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
