// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits the rate at which items are emitted.
func Throttle[T any](src Observable[T], ratePerSecond float64, burst int) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			limiter := rate.NewLimiter(rate.Limit(ratePerSecond), burst)
			return src.Observe(
				ctx,
				func(item T) error {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
					return next(item)
				})
		})
}

// ThrottleLatest emits at most one item per 'interval'. Items arriving while
// waiting are coalesced so that only the latest of them is emitted.
func ThrottleLatest[T any](src Observable[T], interval time.Duration) Observable[T] {
	latest := CoalesceByKey(src, func(T) struct{} { return struct{}{} }, 1)
	return Throttle(latest, float64(time.Second)/float64(interval), 1)
}

// Debounce emits an item only after 'quiet' has passed without the source
// emitting another one. A pending item is flushed when the source completes.
func Debounce[T any](src Observable[T], quiet time.Duration) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			var (
				pending    T
				hasPending bool
				generation int
				timer      *time.Timer
			)
			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				err := src.Observe(ctx, forward(j, func(item T) error {
					pending, hasPending = item, true
					generation++
					gen := generation
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(quiet, func() {
						j.deliver(func() error {
							if gen != generation || !hasPending {
								return nil
							}
							hasPending = false
							return next(pending)
						})
					})
					return nil
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error {
					if timer != nil {
						timer.Stop()
					}
					generation++
					if hasPending {
						hasPending = false
						if err := next(pending); err != nil {
							return err
						}
					}
					return errStop
				})
			})
			return j.run()
		})
}

// Delay shifts the items emitted from source by the given duration.
func Delay[T any](src Observable[T], duration time.Duration) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			first := true
			return src.Observe(
				ctx,
				func(item T) error {
					if first {
						first = false
						timer := time.NewTimer(duration)
						defer timer.Stop()
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-timer.C:
						}
					}
					return next(item)
				})
		})
}

// BufferTime collects items into slices that are emitted when 'count' items
// have been collected (if 'count' is positive) or 'timeSpan' has passed since the previous slice,
// whichever comes first. Empty slices are emitted on quiet periods. The
// remaining items are emitted when the source completes.
func BufferTime[T any](src Observable[T], timeSpan time.Duration, count int) Observable[[]T] {
	return FuncObservable[[]T](
		func(ctx context.Context, next func([]T) error) error {
			ticker := time.NewTicker(timeSpan)
			defer ticker.Stop()

			buf := []T{}
			flush := func() error {
				out := buf
				buf = []T{}
				ticker.Reset(timeSpan)
				return next(out)
			}

			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				err := src.Observe(ctx, forward(j, func(item T) error {
					buf = append(buf, item)
					if count > 0 && len(buf) >= count {
						return flush()
					}
					return nil
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error {
					if len(buf) > 0 {
						if err := flush(); err != nil {
							return err
						}
					}
					return errStop
				})
			})
			j.spawn(func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-ticker.C:
						if err := j.deliver(flush); err != nil {
							return err
						}
					}
				}
			})
			return j.run()
		})
}

// Window splits the source into windows of at most 'count' items, each open
// for at most 'timeSpan'. Every window is a replay subject so that items
// arriving before it is observed are not lost. The windows must be observed
// concurrently with the outer stream, e.g. with MergeAll, as emitting into a
// window waits for its observers.
func Window[T any](src Observable[T], timeSpan time.Duration, count int) Observable[Observable[T]] {
	return FuncObservable[Observable[T]](
		func(ctx context.Context, next func(Observable[T]) error) error {
			ticker := time.NewTicker(timeSpan)
			defer ticker.Stop()

			var (
				current *Subject[T]
				n       int
			)
			open := func() error {
				current = NewReplaySubject[T](-1)
				n = 0
				ticker.Reset(timeSpan)
				return next(current)
			}
			rotate := func() error {
				current.Complete(nil)
				return open()
			}
			if err := open(); err != nil {
				return err
			}

			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				err := src.Observe(ctx, forward(j, func(item T) error {
					current.Next(item)
					n++
					if count > 0 && n >= count {
						return rotate()
					}
					return nil
				}))
				if err != nil {
					return err
				}
				return errStop
			})
			j.spawn(func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-ticker.C:
						if err := j.deliver(rotate); err != nil {
							return err
						}
					}
				}
			})
			err := j.run()
			current.Complete(err)
			return err
		})
}

// CoalesceByKey buffers updates from the input observable and keeps only the latest version of the
// value for the same key when the observer is slow in consuming the values.
func CoalesceByKey[K comparable, V any](src Observable[V], toKey func(V) K, bufferSize int) Observable[V] {
	return FuncObservable[V](
		func(ctx context.Context, next func(V) error) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			queue := newCoalescingQueue[K, V](bufferSize)
			errs := make(chan error, 1)
			go func() {
				errs <- src.Observe(
					ctx,
					func(value V) error {
						queue.push(toKey(value), value)
						return nil
					})
				queue.close()
			}()
			for {
				v, ok := queue.pop()
				if !ok {
					return <-errs
				}
				if err := next(v); err != nil {
					cancel()
					queue.close()
					<-errs
					return err
				}
			}
		})
}

type BackpressureStrategy string

const (
	// Items are dropped if buffer is full
	BackpressureDrop = BackpressureStrategy("drop")

	// Observing blocks until there is room in the buffer
	BackpressureBlock = BackpressureStrategy("block")
)

// Buffer buffers 'n' items with configurable backpressure strategy.
// Downstream errors are not propagated towards 'src'.
func Buffer[T any](src Observable[T], bufSize int, strategy BackpressureStrategy) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			bufCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			buf := make(chan T, bufSize)
			var send func(T) error
			switch strategy {
			case BackpressureBlock:
				send = func(item T) error {
					select {
					case buf <- item:
					case <-bufCtx.Done():
						return bufCtx.Err()
					}
					return nil
				}
			case BackpressureDrop:
				send = func(item T) error {
					select {
					case buf <- item:
					default:
					}
					return nil
				}
			default:
				return fmt.Errorf("unknown backpressure strategy: %q", strategy)
			}

			errs := make(chan error, 1)
			go func() {
				errs <- src.Observe(bufCtx, send)
				close(errs)
				close(buf)
			}()

			var nextErr error
			for item := range buf {
				if nextErr = next(item); nextErr != nil {
					cancel()
					break
				}
			}
			// Unblock the sender if we stopped early.
			go func() {
				for range buf {
				}
			}()

			observeErr := <-errs
			if nextErr != nil {
				return nextErr
			}
			if observeErr != nil {
				return observeErr
			}
			return ctx.Err()
		})
}
