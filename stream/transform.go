// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"sync"
)

// Map applies a function onto an observable.
func Map[A, B any](src Observable[A], apply func(A) B) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B) error) error {
			return src.Observe(
				ctx,
				func(a A) error { return next(apply(a)) })
		})
}

// MapErr applies a fallible function onto an observable. An error from
// 'apply' terminates the stream with that error.
func MapErr[A, B any](src Observable[A], apply func(A) (B, error)) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B) error) error {
			return src.Observe(
				ctx,
				func(a A) error {
					b, err := apply(a)
					if err != nil {
						return err
					}
					return next(b)
				})
		})
}

// CompactMap applies 'apply' onto each item and emits only the results
// for which it returned true.
func CompactMap[A, B any](src Observable[A], apply func(A) (B, bool)) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B) error) error {
			return src.Observe(
				ctx,
				func(a A) error {
					if b, ok := apply(a); ok {
						return next(b)
					}
					return nil
				})
		})
}

// FlatMap applies a function that returns an observable of Bs to the source observable of As.
// The observable from the function is flattened (hence FlatMap). The inner
// observables are observed one after another, in the order of the source items.
func FlatMap[A, B any](src Observable[A], apply func(A) Observable[B]) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B) error) error {
			return src.Observe(
				ctx,
				func(a A) error {
					return apply(a).Observe(ctx, next)
				})
		})
}

// Flatten takes an observable of slices of T and returns an observable of T.
func Flatten[T any](src Observable[[]T]) Observable[T] {
	return FlatMap(
		src,
		func(items []T) Observable[T] {
			return FromSlice(items)
		})
}

// ParallelMap maps a function in parallel to the source. The errors from downstream
// are propagated asynchronously towards the source. The output order is not
// preserved.
func ParallelMap[A, B any](src Observable[A], par int, apply func(A) B) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B) error) error {
			in := make(chan A, par)
			out := make(chan B, par)

			// nextErrs carries the error from 'next' towards upstream.
			nextErrs := make(chan error, 1)
			observeErrs := make(chan error, 1)

			var wg sync.WaitGroup
			wg.Add(par)
			for n := 0; n < par; n++ {
				go func() {
					defer wg.Done()
					for v := range in {
						out <- apply(v)
					}
				}()
			}

			go func() {
				err := src.Observe(
					ctx,
					func(a A) error {
						select {
						case err := <-nextErrs:
							return err
						case in <- a:
						}
						return nil
					})
				close(in)
				wg.Wait()
				close(out)
				observeErrs <- err
			}()

			var nextErr error
			for item := range out {
				if nextErr = next(item); nextErr != nil {
					nextErrs <- nextErr
					break
				}
			}

			// Drain to unblock the workers if we stopped early.
			for range out {
			}

			err := <-observeErrs
			if nextErr != nil {
				return nextErr
			}
			return err
		})
}

// Reduce takes an initial state, and a function 'reduce' that is called on each element
// along with a state and returns an observable with a single result state produced
// by the last call to 'reduce'.
func Reduce[T, Result any](src Observable[T], init Result, reduce func(Result, T) Result) Observable[Result] {
	return FuncObservable[Result](
		func(ctx context.Context, next func(Result) error) error {
			result := init
			err := src.Observe(
				ctx,
				func(x T) error {
					result = reduce(result, x)
					return nil
				})
			if err != nil {
				return err
			}
			return next(result)
		})
}

// Scan takes an initial state and a step function that is called on each element with the
// previous state and returns an observable of the states returned by the step function.
// E.g. Scan is like Reduce that emits the intermediate states.
func Scan[In, Out any](src Observable[In], init Out, step func(Out, In) Out) Observable[Out] {
	return FuncObservable[Out](
		func(ctx context.Context, next func(Out) error) error {
			prev := init
			return src.Observe(
				ctx,
				func(x In) error {
					prev = step(prev, x)
					return next(prev)
				})
		})
}

// ToArray collects all items into a single slice that is emitted when the
// source completes.
func ToArray[T any](src Observable[T]) Observable[[]T] {
	return Reduce(src, []T{}, func(items []T, item T) []T {
		return append(items, item)
	})
}

// OnNext calls the supplied function on each emitted item.
func OnNext[T any](src Observable[T], f func(T)) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			return src.Observe(
				ctx,
				func(item T) error {
					f(item)
					return next(item)
				})
		})
}

// OnComplete calls the supplied function with the terminal error (nil on
// successful completion) after the source has stopped.
func OnComplete[T any](src Observable[T], f func(error)) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			err := src.Observe(ctx, next)
			f(err)
			return err
		})
}
