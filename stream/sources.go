// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"bufio"
	"context"
	"io"
	"time"
)

//
// Sources, e.g. operators that create new observables.
//

// Just creates an observable with a single item.
func Just[T any](item T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return next(item)
		})
}

// Of creates an observable that emits the given items in order.
func Of[T any](items ...T) Observable[T] {
	return FromSlice(items)
}

// Stuck creates an observable that never emits anything and
// just waits for the context to be cancelled.
// Mainly meant for testing.
func Stuck[T any]() Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			<-ctx.Done()
			return ctx.Err()
		})
}

// Error creates an observable that fails immediately with given error.
func Error[T any](err error) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			return err
		})
}

// Empty creates an empty observable that completes immediately.
func Empty[T any]() Observable[T] {
	return Error[T](nil)
}

// FromSlice converts a slice into an Observable.
func FromSlice[T any](items []T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			for _, item := range items {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := next(item); err != nil {
					return err
				}
			}
			return nil
		})
}

// FromChannel creates an observable from a channel. The channel is consumed
// by the first observer. The observable completes when the channel is closed.
func FromChannel[T any](in <-chan T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case v, ok := <-in:
					if !ok {
						return nil
					}
					if err := next(v); err != nil {
						return err
					}
				}
			}
		})
}

// FromFunction creates an observable that calls 'f' on each observe
// and emits the result.
func FromFunction[T any](f func() T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return next(f())
		})
}

// FromLines emits each line read from 'r' without the line terminator.
// The reader is consumed by the first observer. The lines are scanned on a
// separate goroutine so that cancelling the context completes the
// observable even while a read is blocked. That goroutine stays blocked
// in the read until 'r' returns.
func FromLines(r io.Reader) Observable[string] {
	return FuncObservable[string](
		func(ctx context.Context, next func(string) error) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			lines := make(chan string)
			scanErr := make(chan error, 1)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(r)
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
				scanErr <- scanner.Err()
			}()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case line, ok := <-lines:
					if !ok {
						select {
						case err := <-scanErr:
							return err
						default:
							return ctx.Err()
						}
					}
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := next(line); err != nil {
						return err
					}
				}
			}
		})
}

// Interval emits an increasing counter value every 'interval' period.
func Interval(interval time.Duration) Observable[int] {
	return FuncObservable[int](
		func(ctx context.Context, next func(int) error) error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			done := ctx.Done()
			for i := 0; ; i++ {
				select {
				case <-done:
					return ctx.Err()
				case <-ticker.C:
					if err := next(i); err != nil {
						return err
					}
				}
			}
		})
}

// Timer emits 0 after the given delay and completes.
func Timer(delay time.Duration) Observable[int] {
	return FuncObservable[int](
		func(ctx context.Context, next func(int) error) error {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return next(0)
			}
		})
}

// Range creates an observable that emits integers in range from...to-1.
func Range(from, to int) Observable[int] {
	return FuncObservable[int](
		func(ctx context.Context, next func(int) error) error {
			for i := from; i < to; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := next(i); err != nil {
					return err
				}
			}
			return nil
		})
}

// Deferred creates an observable that allows subscribing, but
// waits for the real observable to be provided later. Observers
// waiting for the source stop when their context is cancelled.
func Deferred[T any]() (src Observable[T], start func(Observable[T])) {
	ready := make(chan struct{})
	var realSrc Observable[T]

	src = FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ready:
			}
			return realSrc.Observe(ctx, next)
		})

	start = func(src Observable[T]) {
		realSrc = src
		close(ready)
	}
	return
}
