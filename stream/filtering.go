// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
)

// Filter keeps only the elements for which the filter function returns true.
func Filter[T any](src Observable[T], filter func(T) bool) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			return src.Observe(
				ctx,
				func(x T) error {
					if filter(x) {
						return next(x)
					}
					return nil
				})
		})
}

// IgnoreElements drops all items and only forwards the completion.
func IgnoreElements[T any](src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			return src.Observe(ctx, func(T) error { return nil })
		})
}

// ElementAt emits only the item at index 'n' and then completes.
func ElementAt[T any](n int, src Observable[T]) Observable[T] {
	return Take(1, Skip(n, src))
}

// Take takes 'n' items from the source 'src'.
// The context given to source observable is cancelled if it emits
// more than 'n' items. If all 'n' items were emitted this cancelled
// error is ignored.
func Take[T any](n int, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			if n <= 0 {
				return ctx.Err()
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			remaining := n
			err := src.Observe(ctx,
				func(item T) error {
					if remaining > 0 {
						if err := next(item); err != nil {
							return err
						}
						remaining--
					}
					if remaining == 0 {
						cancel()
					}
					return nil
				})

			if remaining == 0 && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
}

// TakeWhile takes items from the source until 'pred' returns false after which
// the observable is completed.
func TakeWhile[T any](pred func(T) bool, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			done := false
			err := src.Observe(ctx,
				func(item T) error {
					if !done && pred(item) {
						if err := next(item); err != nil {
							return err
						}
					} else {
						done = true
						cancel()
					}
					return nil
				})
			if done && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
}

// TakeUntil forwards items from 'src' until 'trigger' emits its first item.
// A trigger that completes without emitting has no effect.
func TakeUntil[T, U any](trigger Observable[U], src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				return trigger.Observe(ctx, forward(j, func(U) error { return errStop }))
			})
			j.spawn(func(ctx context.Context) error {
				if err := src.Observe(ctx, forward(j, next)); err != nil {
					return err
				}
				return errStop
			})
			return j.run()
		})
}

// Skip skips the first 'n' items from the source.
func Skip[T any](n int, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			skip := n
			return src.Observe(ctx,
				func(item T) error {
					if skip > 0 {
						skip--
						return nil
					}
					return next(item)
				})
		})
}

// SkipWhile drops items while 'pred' holds and forwards everything after
// the first item for which it does not.
func SkipWhile[T any](pred func(T) bool, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			skipping := true
			return src.Observe(ctx,
				func(item T) error {
					if skipping && pred(item) {
						return nil
					}
					skipping = false
					return next(item)
				})
		})
}

// SkipUntil drops items from 'src' until 'trigger' emits its first item.
func SkipUntil[T, U any](trigger Observable[U], src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			j := newJoint(ctx)
			open := false
			j.spawn(func(ctx context.Context) error {
				return trigger.Observe(ctx, forward(j, func(U) error {
					open = true
					return nil
				}))
			})
			j.spawn(func(ctx context.Context) error {
				err := src.Observe(ctx, forward(j, func(item T) error {
					if !open {
						return nil
					}
					return next(item)
				}))
				if err != nil {
					return err
				}
				return errStop
			})
			return j.run()
		})
}

// DistinctUntilChanged drops items equal to the previously emitted one.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return DistinctUntilChangedFunc(src, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops items that 'equal' considers equal to the
// previously emitted one.
func DistinctUntilChangedFunc[T any](src Observable[T], equal func(a, b T) bool) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			var prev T
			first := true
			return src.Observe(ctx,
				func(item T) error {
					if !first && equal(prev, item) {
						return nil
					}
					first = false
					prev = item
					return next(item)
				})
		})
}
