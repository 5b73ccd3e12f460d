// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// StartWith emits 'items' before the items of 'src'.
func StartWith[T any](src Observable[T], items ...T) Observable[T] {
	return Concat(FromSlice(items), src)
}

// Concat takes one or more observable of the same type and emits the items from each of
// them in order.
func Concat[T any](srcs ...Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			for _, src := range srcs {
				if err := src.Observe(ctx, next); err != nil {
					return err
				}
			}
			return nil
		})
}

// Merge multiple observables into one. Error from any one of the sources will
// cancel and complete the stream. Error from downstream is propagated to the
// upstream that emitted the item.
//
// Beware: the observables are observed from goroutines spawned by Merge()
// and thus run concurrently, e.g. functions doFoo and doBar are called from
// different goroutines than Observe():
//
//	Merge(Map(foo, doFoo), Map(bar, doBar)).Observe(...)
func Merge[T any](srcs ...Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			j := newJoint(ctx)
			for _, src := range srcs {
				j.spawn(func(ctx context.Context) error {
					return src.Observe(ctx, forward(j, next))
				})
			}
			return j.run()
		})
}

// MergeAll flattens an observable of observables by observing at most
// 'maxConcurrent' inner observables at a time. Further inner observables
// wait for a slot, which in turn holds back the outer source. A
// non-positive 'maxConcurrent' means no limit.
func MergeAll[T any](srcs Observable[Observable[T]], maxConcurrent int) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			limit := int64(maxConcurrent)
			if limit <= 0 {
				limit = math.MaxInt64
			}
			sem := semaphore.NewWeighted(limit)

			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				return srcs.Observe(ctx, func(inner Observable[T]) error {
					if err := sem.Acquire(ctx, 1); err != nil {
						return err
					}
					j.spawn(func(ctx context.Context) error {
						defer sem.Release(1)
						return inner.Observe(ctx, forward(j, next))
					})
					return nil
				})
			})
			return j.run()
		})
}

// Tuple2 is a pair of items emitted by Zip2.
type Tuple2[V1, V2 any] struct {
	V1 V1
	V2 V2
}

// Zip2 takes two observables and merges them into an observable of pairs.
// The stream completes when either source has completed and all of its
// items have been paired.
func Zip2[V1, V2 any](src1 Observable[V1], src2 Observable[V2]) Observable[Tuple2[V1, V2]] {
	return FuncObservable[Tuple2[V1, V2]](
		func(ctx context.Context, next func(Tuple2[V1, V2]) error) error {
			var (
				q1           []V1
				q2           []V2
				done1, done2 bool
			)
			emit := func() error {
				for len(q1) > 0 && len(q2) > 0 {
					pair := Tuple2[V1, V2]{V1: q1[0], V2: q2[0]}
					q1, q2 = q1[1:], q2[1:]
					if err := next(pair); err != nil {
						return err
					}
				}
				if (done1 && len(q1) == 0) || (done2 && len(q2) == 0) {
					return errStop
				}
				return nil
			}

			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				err := src1.Observe(ctx, forward(j, func(v V1) error {
					q1 = append(q1, v)
					return emit()
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error { done1 = true; return emit() })
			})
			j.spawn(func(ctx context.Context) error {
				err := src2.Observe(ctx, forward(j, func(v V2) error {
					q2 = append(q2, v)
					return emit()
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error { done2 = true; return emit() })
			})
			return j.run()
		})
}

// CombineLatest2 emits the combination of the latest items of both sources
// whenever either emits, once both have emitted at least once. It completes
// when both sources have completed, or as soon as one completes without
// having emitted anything.
func CombineLatest2[V1, V2, R any](src1 Observable[V1], src2 Observable[V2], combine func(V1, V2) R) Observable[R] {
	return FuncObservable[R](
		func(ctx context.Context, next func(R) error) error {
			var (
				latest1      V1
				latest2      V2
				have1, have2 bool
			)
			emit := func() error {
				if have1 && have2 {
					return next(combine(latest1, latest2))
				}
				return nil
			}

			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				err := src1.Observe(ctx, forward(j, func(v V1) error {
					latest1, have1 = v, true
					return emit()
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error {
					if !have1 {
						return errStop
					}
					return nil
				})
			})
			j.spawn(func(ctx context.Context) error {
				err := src2.Observe(ctx, forward(j, func(v V2) error {
					latest2, have2 = v, true
					return emit()
				}))
				if err != nil {
					return err
				}
				return j.deliver(func() error {
					if !have2 {
						return errStop
					}
					return nil
				})
			})
			return j.run()
		})
}

// WithLatestFrom combines each item of 'src' with the latest item from
// 'other'. Items of 'src' arriving before 'other' has emitted are dropped.
// The stream completes with 'src'.
func WithLatestFrom[A, B, R any](src Observable[A], other Observable[B], combine func(A, B) R) Observable[R] {
	return FuncObservable[R](
		func(ctx context.Context, next func(R) error) error {
			var (
				latest B
				have   bool
			)
			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				return other.Observe(ctx, forward(j, func(b B) error {
					latest, have = b, true
					return nil
				}))
			})
			j.spawn(func(ctx context.Context) error {
				err := src.Observe(ctx, forward(j, func(a A) error {
					if !have {
						return nil
					}
					return next(combine(a, latest))
				}))
				if err != nil {
					return err
				}
				return errStop
			})
			return j.run()
		})
}

// Sample emits the latest item of 'src' each time 'trigger' emits, provided
// 'src' has emitted something new since the previous sample. The stream
// completes when either source completes.
func Sample[T, U any](src Observable[T], trigger Observable[U]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			var (
				latest T
				fresh  bool
			)
			stopOnComplete := func(err error) error {
				if err != nil {
					return err
				}
				return errStop
			}
			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				return stopOnComplete(src.Observe(ctx, forward(j, func(item T) error {
					latest, fresh = item, true
					return nil
				})))
			})
			j.spawn(func(ctx context.Context) error {
				return stopOnComplete(trigger.Observe(ctx, forward(j, func(U) error {
					if !fresh {
						return nil
					}
					fresh = false
					return next(latest)
				})))
			})
			return j.run()
		})
}

// Amb mirrors the first source to emit an item and stops observing the others.
func Amb[T any](srcs ...Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			j := newJoint(ctx)
			winner := -1
			lost := make([]atomic.Bool, len(srcs))
			cancels := make([]context.CancelFunc, len(srcs))
			ctxs := make([]context.Context, len(srcs))
			for i := range srcs {
				ctxs[i], cancels[i] = context.WithCancel(j.ctx)
			}
			defer func() {
				for _, cancel := range cancels {
					cancel()
				}
			}()

			for i, src := range srcs {
				j.spawn(func(context.Context) error {
					err := src.Observe(ctxs[i], forward(j, func(item T) error {
						if winner < 0 {
							winner = i
							for k, cancel := range cancels {
								if k != i {
									lost[k].Store(true)
									cancel()
								}
							}
						}
						if winner != i {
							return nil
						}
						return next(item)
					}))
					if lost[i].Load() {
						return nil
					}
					return err
				})
			}
			return j.run()
		})
}

// SwitchLatest flattens an observable of observables by mirroring only the
// most recent inner observable. The previous inner observable is cancelled
// when a new one arrives.
func SwitchLatest[T any](srcs Observable[Observable[T]]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			var (
				cancelInner context.CancelFunc
				generation  int
			)
			j := newJoint(ctx)
			j.spawn(func(ctx context.Context) error {
				return srcs.Observe(ctx, forward(j, func(inner Observable[T]) error {
					if cancelInner != nil {
						cancelInner()
					}
					generation++
					gen := generation
					innerCtx, cancel := context.WithCancel(j.ctx)
					cancelInner = cancel

					j.spawn(func(context.Context) error {
						err := inner.Observe(innerCtx, forward(j, func(item T) error {
							if gen != generation {
								return nil
							}
							return next(item)
						}))
						if errors.Is(err, context.Canceled) && innerCtx.Err() != nil && j.ctx.Err() == nil {
							// Switched to a newer inner observable.
							return nil
						}
						return err
					})
					return nil
				}))
			})
			return j.run()
		})
}

// SwitchMap maps each item to an observable and mirrors only the latest one.
func SwitchMap[A, B any](src Observable[A], apply func(A) Observable[B]) Observable[B] {
	return SwitchLatest(Map(src, apply))
}
