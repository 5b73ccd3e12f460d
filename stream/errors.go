// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"time"
)

//
// Retrying and error handling
//

// CatchError replaces a failing source with the observable returned by
// 'handler'. Errors returned by downstream and context cancellation are
// not caught.
func CatchError[T any](src Observable[T], handler func(error) Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			var downstreamErr error
			err := src.Observe(
				ctx,
				func(item T) error {
					downstreamErr = next(item)
					return downstreamErr
				})
			if err == nil || downstreamErr != nil || ctx.Err() != nil {
				return err
			}
			return handler(err).Observe(ctx, next)
		})
}

// CatchErrorJustReturn completes with 'fallback' as the last item if the
// source fails.
func CatchErrorJustReturn[T any](src Observable[T], fallback T) Observable[T] {
	return CatchError(src, func(error) Observable[T] { return Just(fallback) })
}

// RetryFunc decides whether to resubscribe after 'err'. It may block, for
// example to back off, and must return false once 'ctx' is cancelled.
type RetryFunc func(ctx context.Context, err error) bool

// Retry resubscribes to the source when it completes with an error that
// 'shouldRetry' accepts. The items emitted before the failure are not
// replayed by Retry itself.
func Retry[T any](src Observable[T], shouldRetry RetryFunc) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			for {
				err := src.Observe(ctx, next)
				if err == nil || ctx.Err() != nil || !shouldRetry(ctx, err) {
					return err
				}
			}
		})
}

// RetryNext calls 'next' again with the same item while it fails with an
// error that 'shouldRetry' accepts.
func RetryNext[T any](src Observable[T], shouldRetry RetryFunc) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			return src.Observe(ctx, func(item T) error {
				err := next(item)
				for err != nil && ctx.Err() == nil && shouldRetry(ctx, err) {
					err = next(item)
				}
				return err
			})
		})
}

// AlwaysRetry retries any error until the context is cancelled.
func AlwaysRetry(ctx context.Context, err error) bool {
	return ctx.Err() == nil
}

// RetryIf retries the errors for which 'pred' holds.
func RetryIf(pred func(error) bool) RetryFunc {
	return func(ctx context.Context, err error) bool {
		return ctx.Err() == nil && pred(err)
	}
}

// BackoffRetry waits before each retry, doubling the wait from 'minBackoff'
// up to 'maxBackoff'. The wait is cut short by cancelling the context, in
// which case no retry is done. The returned func keeps the backoff state,
// so create one per observation.
func BackoffRetry(shouldRetry RetryFunc, minBackoff, maxBackoff time.Duration) RetryFunc {
	backoff := minBackoff
	return func(ctx context.Context, err error) bool {
		if !shouldRetry(ctx, err) {
			return false
		}
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
		backoff = min(2*backoff, maxBackoff)
		return true
	}
}

// LimitRetries allows at most 'numRetries' retries.
// e.g. LimitRetries(BackoffRetry(AlwaysRetry, time.Millisecond, time.Second), 5)
func LimitRetries(shouldRetry RetryFunc, numRetries int) RetryFunc {
	return func(ctx context.Context, err error) bool {
		if numRetries <= 0 {
			return false
		}
		numRetries--
		return shouldRetry(ctx, err)
	}
}
