package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	worker "github.com/okian/genie/internal/adapters/mq/worker"
	logging "github.com/okian/genie/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestLoop(t *testing.T) {
	convey.Convey("Given a loop", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("When the step succeeds", func() {
			var calls atomic.Int64
			l := worker.NewLoop("test_ok", func(context.Context) (time.Duration, error) {
				calls.Add(1)
				return time.Millisecond, nil
			})
			go l.Run(ctx)

			convey.Convey("Then it iterates until shut down", func() {
				convey.So(waitFor(func() bool { return calls.Load() >= 3 }), convey.ShouldBeTrue)
				convey.So(l.Shutdown(context.Background()), convey.ShouldBeNil)
				n := calls.Load()
				time.Sleep(20 * time.Millisecond)
				convey.So(calls.Load(), convey.ShouldEqual, n)
			})
		})

		convey.Convey("When the step panics", func() {
			var calls atomic.Int64
			l := worker.NewLoop("test_panic", func(context.Context) (time.Duration, error) {
				if calls.Add(1) == 1 {
					panic("boom")
				}
				return time.Millisecond, nil
			}, worker.WithErrorBackoff(time.Millisecond))
			go l.Run(ctx)

			convey.Convey("Then the loop recovers and continues", func() {
				convey.So(waitFor(func() bool { return calls.Load() >= 2 }), convey.ShouldBeTrue)
				convey.So(l.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the step fails", func() {
			var calls atomic.Int64
			l := worker.NewLoop("test_err", func(context.Context) (time.Duration, error) {
				calls.Add(1)
				return 0, errors.New("upstream down")
			}, worker.WithErrorBackoff(50*time.Millisecond))
			go l.Run(ctx)

			convey.Convey("Then it backs off between attempts", func() {
				time.Sleep(75 * time.Millisecond)
				convey.So(calls.Load(), convey.ShouldBeBetweenOrEqual, 1, 2)
				convey.So(l.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the step requests a long sleep", func() {
			l := worker.NewLoop("test_sleep", func(context.Context) (time.Duration, error) {
				return time.Hour, nil
			})
			go l.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("Then cancellation interrupts the sleep", func() {
				cancel()
				done := make(chan error, 1)
				go func() { done <- l.Shutdown(context.Background()) }()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(time.Second):
					t.Error("shutdown blocked after cancellation")
				}
			})
		})

		convey.Convey("When the loop is rate limited", func() {
			var calls atomic.Int64
			l := worker.NewLoop("test_rate", func(context.Context) (time.Duration, error) {
				calls.Add(1)
				return 0, nil
			}, worker.WithRate(20, 1))
			go l.Run(ctx)

			convey.Convey("Then iterations follow the limiter", func() {
				time.Sleep(120 * time.Millisecond)
				convey.So(calls.Load(), convey.ShouldBeLessThanOrEqualTo, 5)
				convey.So(calls.Load(), convey.ShouldBeGreaterThanOrEqualTo, 1)
				convey.So(l.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of loops", t, func() {
		var a, b atomic.Int64
		pool := worker.NewPool(
			worker.NewLoop("pool_a", func(context.Context) (time.Duration, error) { a.Add(1); return time.Millisecond, nil }),
			worker.NewLoop("pool_b", func(context.Context) (time.Duration, error) { b.Add(1); return time.Millisecond, nil }),
		)
		convey.So(pool.Len(), convey.ShouldEqual, 2)

		pool.Start(context.Background())

		convey.Convey("Then every loop runs and stops", func() {
			convey.So(waitFor(func() bool { return a.Load() > 0 && b.Load() > 0 }), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestLoopShutdownLetsStepFinish(t *testing.T) {
	convey.Convey("Given a loop whose step is blocked on its own deadline", t, func() {
		started := make(chan struct{})
		var outcome atomic.Value
		var once atomic.Bool
		l := worker.NewLoop("test_inflight", func(ctx context.Context) (time.Duration, error) {
			if once.CompareAndSwap(false, true) {
				close(started)
				select {
				case <-ctx.Done():
					outcome.Store("cancelled")
				case <-time.After(100 * time.Millisecond):
					outcome.Store("deadline")
				}
			}
			return time.Millisecond, nil
		})
		go l.Run(context.Background())
		<-started

		convey.Convey("When the loop is shut down mid-step", func() {
			convey.So(l.Shutdown(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then the step ran to its deadline uncancelled", func() {
				convey.So(outcome.Load(), convey.ShouldEqual, "deadline")
			})
		})
	})
}
