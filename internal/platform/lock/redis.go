package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"sessionsale/pkg/platform/sentinel"
)

const keyPrefix = "sessionsale:lock:"

// Redis is a distributed keyed lock backed by redsync. While fn runs the
// mutex is extended every third of its expiry, so the expiry only bounds how
// long a crashed holder blocks the key.
type Redis struct {
	rs         *redsync.Redsync
	expiry     time.Duration
	tries      int
	retryDelay time.Duration
	logger     *slog.Logger
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithExpiry sets how long a lock survives if its holder disappears.
func WithExpiry(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.expiry = d
		}
	}
}

// WithRetry sets how many acquisition attempts are made and the delay between them.
func WithRetry(tries int, delay time.Duration) RedisOption {
	return func(r *Redis) {
		if tries > 0 {
			r.tries = tries
		}
		if delay > 0 {
			r.retryDelay = delay
		}
	}
}

// WithLogger sets the logger used for unlock failures.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

// NewRedis builds a Locker over an existing go-redis client.
func NewRedis(client goredislib.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		rs:         redsync.New(goredis.NewPool(client)),
		expiry:     2 * time.Minute,
		tries:      600,
		retryDelay: 100 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithLock acquires the redsync mutex for key, runs fn and releases it.
// Failing to acquire within the retry budget reports sentinel.ErrUnavailable.
// If an extension fails the context passed to fn is cancelled with a cause
// wrapping sentinel.ErrUnavailable.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m := r.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(r.tries),
		redsync.WithRetryDelay(r.retryDelay),
	)
	if err := m.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("acquire lock %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	defer func() {
		// Unlock with a fresh context so a cancelled request still releases.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if ok, err := m.UnlockContext(unlockCtx); err != nil || !ok {
			r.logger.WarnContext(ctx, "lock release failed",
				"key", key,
				"error", err,
			)
		}
	}()

	lockCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := r.keepAlive(lockCtx, m, key, cancel)
	defer stop()

	return fn(lockCtx)
}

// keepAlive extends m until the returned stop func is called. Stop waits for
// the extender to exit so no extension races the unlock.
func (r *Redis) keepAlive(ctx context.Context, m *redsync.Mutex, key string, lost context.CancelCauseFunc) func() {
	interval := r.expiry / 3
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				extendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), interval)
				ok, err := m.ExtendContext(extendCtx)
				cancel()
				if err != nil || !ok {
					r.logger.ErrorContext(ctx, "lock extension failed",
						"key", key,
						"error", err,
					)
					lost(fmt.Errorf("lock %s lost: %w", key, sentinel.ErrUnavailable))
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
