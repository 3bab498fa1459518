package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sessionsale/pkg/platform/sentinel"
)

type LockerSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *goredislib.Client
}

func TestLockerSuite(t *testing.T) {
	suite.Run(t, new(LockerSuite))
}

func (s *LockerSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = goredislib.NewClient(&goredislib.Options{Addr: s.mr.Addr()})
}

func (s *LockerSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *LockerSuite) lockers() map[string]Locker {
	return map[string]Locker{
		"local": NewLocal(),
		"redis": NewRedis(s.client, WithRetry(200, 5*time.Millisecond)),
	}
}

func (s *LockerSuite) TestSerializesSameKey() {
	for name, l := range s.lockers() {
		s.Run(name, func() {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), "cred-1", func(context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							cur := atomic.LoadInt32(&maxInside)
							if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
								break
							}
						}
						time.Sleep(2 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					s.NoError(err)
				}()
			}
			wg.Wait()
			s.Equal(int32(1), maxInside)
		})
	}
}

func (s *LockerSuite) TestPropagatesCallbackError() {
	boom := errors.New("boom")
	for name, l := range s.lockers() {
		s.Run(name, func() {
			err := l.WithLock(context.Background(), "cred-2", func(context.Context) error { return boom })
			s.ErrorIs(err, boom)

			// Released after an error.
			err = l.WithLock(context.Background(), "cred-2", func(context.Context) error { return nil })
			s.NoError(err)
		})
	}
}

func (s *LockerSuite) TestRedisHeldKeyTimesOut() {
	holder := NewRedis(s.client)
	waiter := NewRedis(s.client, WithRetry(3, time.Millisecond))

	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = holder.WithLock(context.Background(), "cred-3", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	err := waiter.WithLock(context.Background(), "cred-3", func(context.Context) error {
		s.Fail("must not run while the key is held")
		return nil
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)
	close(release)
}

func (s *LockerSuite) TestRedisExtendsWhileHeld() {
	const expiry = 300 * time.Millisecond
	l := NewRedis(s.client, WithExpiry(expiry))

	err := l.WithLock(context.Background(), "cred-4", func(ctx context.Context) error {
		// Advance redis time well past the expiry in steps the extender can follow.
		for range 10 {
			s.mr.FastForward(50 * time.Millisecond)
			time.Sleep(120 * time.Millisecond)
		}
		s.True(s.mr.Exists(keyPrefix+"cred-4"), "lock expired while held")
		s.NoError(ctx.Err())
		return nil
	})
	s.NoError(err)
	s.False(s.mr.Exists(keyPrefix + "cred-4"))
}

func (s *LockerSuite) TestRedisLostLockCancelsCallback() {
	l := NewRedis(s.client, WithExpiry(150*time.Millisecond))

	err := l.WithLock(context.Background(), "cred-5", func(ctx context.Context) error {
		s.mr.Del(keyPrefix + "cred-5")
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(2 * time.Second):
			return errors.New("callback context was not cancelled")
		}
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func TestLocal_ContextCancelledWhileWaiting(t *testing.T) {
	l := NewLocal()
	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "k", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return l.size() == 0 }, time.Second, time.Millisecond)
}

func TestLocal_DistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	done := make(chan struct{})
	err := l.WithLock(context.Background(), "a", func(ctx context.Context) error {
		return l.WithLock(ctx, "b", func(context.Context) error {
			close(done)
			return nil
		})
	})
	require.NoError(t, err)
	<-done
	assert.Equal(t, 0, l.size())
}
