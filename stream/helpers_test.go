// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"testing"
)

//
// Test helpers
//

func assertSlice[T comparable](t *testing.T, what string, expected []T, actual []T) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("assertSlice[%s]: expected %d items, got %d (%v)", what, len(expected), len(actual), actual)
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Fatalf("assertSlice[%s]: at index %d, expected %v, got %v", what, i, expected[i], actual[i])
		}
	}
}

func assertNil(t *testing.T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error in %s: %s", what, err)
	}
}

func checkCancelled(t *testing.T, what string, src Observable[int]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ToSlice(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("%s: expected Canceled error, got %s", what, err)
	}
	assertSlice(t, what, []int{}, result)
}

// fromCallback creates an observable that is fed by the returned 'emit' function.
// Only sane with a single observer.
func fromCallback[T any](bufSize int) (emit func(T), complete func(error), obs Observable[T]) {
	items := make(chan T, bufSize)
	errs := make(chan error, bufSize)

	emit = func(x T) {
		items <- x
	}

	complete = func(err error) {
		errs <- err
	}

	obs = FuncObservable[T](
		func(ctx context.Context, next func(T) error) error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case err := <-errs:
					return err
				case item := <-items:
					if err := next(item); err != nil {
						return err
					}
				}
			}
		})

	return
}

// observeAsync observes 'src' on a new goroutine and returns a function
// that waits for the result.
func observeAsync[T any](ctx context.Context, src Observable[T]) func() ([]T, error) {
	type result struct {
		items []T
		err   error
	}
	results := make(chan result, 1)
	go func() {
		items, err := ToSlice(ctx, src)
		results <- result{items, err}
	}()
	return func() ([]T, error) {
		r := <-results
		return r.items, r.err
	}
}

func waitSubs[T any](t *testing.T, s *Subject[T], n int) {
	t.Helper()
	if err := s.WaitSubscribers(context.Background(), n); err != nil {
		t.Fatalf("WaitSubscribers: %s", err)
	}
}
