package retirement

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	artifactservice "sessionsale/internal/artifact/service"
	"sessionsale/internal/notify"
	"sessionsale/pkg/platform/sentinel"
)

// retry runs op up to attempts times with exponential backoff. Errors that
// cannot succeed on a second try stop the loop immediately.
func (p *Protocol) retry(ctx context.Context, step Step, attempts int, op func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.InitialBackoff
	exp.MaxInterval = p.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		p.logger.WarnContext(ctx, "retirement step attempt failed",
			"step", step,
			"attempt", attempt,
			"max_attempts", attempts,
			"retry_in", wait,
			"error", err,
		)
	})
}

func isPermanent(err error) bool {
	return errors.Is(err, notify.ErrRejected) ||
		errors.Is(err, artifactservice.ErrDigestMismatch) ||
		errors.Is(err, sentinel.ErrNotFound)
}
