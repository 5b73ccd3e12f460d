// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
)

//
// Sinks: operators that run an observable and send the output somewhere.
//

// ErrEmpty is returned by First and Last when the source completed
// without emitting anything.
var ErrEmpty = errors.New("empty stream")

var errFound = errors.New("found")

// ToSlice converts an Observable into a slice.
func ToSlice[T any](ctx context.Context, src Observable[T]) (items []T, err error) {
	items = make([]T, 0)
	err = src.Observe(
		ctx,
		func(item T) error {
			items = append(items, item)
			return nil
		})
	return
}

// ToChannels converts an observable into an item channel and error channel.
// When the source closes both channels are closed and an error (which may be nil)
// is always sent to the error channel.
func ToChannels[T any](ctx context.Context, src Observable[T]) (<-chan T, <-chan error) {
	out := make(chan T, 1)
	errs := make(chan error, 1)
	go func() {
		errs <- src.Observe(
			ctx,
			func(item T) error {
				select {
				case out <- item:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		close(out)
		close(errs)
	}()
	return out, errs
}

// First returns the first item from 'src' and stops observing it.
func First[T any](ctx context.Context, src Observable[T]) (item T, err error) {
	found := false
	err = src.Observe(
		ctx,
		func(x T) error {
			item, found = x, true
			return errFound
		})
	switch {
	case found:
		return item, nil
	case err == nil:
		err = ErrEmpty
	}
	return
}

// Last returns the final item emitted by 'src' once it completes.
func Last[T any](ctx context.Context, src Observable[T]) (item T, err error) {
	found := false
	err = src.Observe(
		ctx,
		func(x T) error {
			item, found = x, true
			return nil
		})
	if err == nil && !found {
		err = ErrEmpty
	}
	return
}

// Discard observes 'src' until completion and drops the items.
func Discard[T any](ctx context.Context, src Observable[T]) error {
	return src.Observe(ctx, func(T) error { return nil })
}
