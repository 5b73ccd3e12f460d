// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCatchError(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("failure")

	xs, err := ToSlice(ctx, CatchErrorJustReturn(Concat(Of(1, 2), Error[int](failure)), -1))
	assertNil(t, "CatchErrorJustReturn", err)
	assertSlice(t, "CatchErrorJustReturn", []int{1, 2, -1}, xs)

	xs, err = ToSlice(ctx, CatchErrorJustReturn(Of(1, 2), -1))
	assertNil(t, "CatchErrorJustReturn no error", err)
	assertSlice(t, "CatchErrorJustReturn no error", []int{1, 2}, xs)

	var caught error
	xs, err = ToSlice(ctx, CatchError(Error[int](failure), func(err error) Observable[int] {
		caught = err
		return Of(7, 8)
	}))
	assertNil(t, "CatchError", err)
	assertSlice(t, "CatchError", []int{7, 8}, xs)
	if !errors.Is(caught, failure) {
		t.Fatalf("expected handler to see %s, got %s", failure, caught)
	}

	// Downstream errors are not caught.
	stop := errors.New("stop")
	err = CatchErrorJustReturn(Of(1, 2), -1).Observe(ctx, func(int) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected %s, got %s", stop, err)
	}

	// Neither is cancellation.
	checkCancelled(t, "CatchError cancelled", CatchErrorJustReturn(Stuck[int](), -1))
}

func TestRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		err1 = errors.New("err1")
		err2 = errors.New("err2")
	)

	emit, complete, obs := fromCallback[int](1)
	// Retry if error is 'err1', otherwise stop.
	obs = Retry(obs, RetryIf(func(err error) bool { return errors.Is(err, err1) }))

	items, errs := ToChannels(ctx, obs)

	emit(1)
	if item := <-items; item != 1 {
		t.Fatalf("expected 1, got %d", item)
	}

	emit(2)
	if item := <-items; item != 2 {
		t.Fatalf("expected 2, got %d", item)
	}

	complete(err1) // this should be retried
	emit(3)
	if item := <-items; item != 3 {
		t.Fatalf("expected 3, got %d", item)
	}

	complete(err2) // this should stop the observing
	emit(4)        // ignored
	complete(nil)  // ignored

	if item, ok := <-items; ok {
		t.Fatalf("expected items channel to be closed, got item %d", item)
	}

	if err := <-errs; err != err2 {
		t.Fatalf("expected error %s, got %s", err2, err)
	}
}

func TestRetryNext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		err1 = errors.New("err1")
		err2 = errors.New("err2")
	)

	isErr1 := RetryIf(func(err error) bool {
		return errors.Is(err, err1)
	})

	prev := 0
	err := RetryNext(Range(1, 100), isErr1).Observe(
		ctx,
		func(i int) error {
			if i == 10 && prev != i {
				prev = i
				return err1
			}
			if i == 20 && prev != i {
				prev = i
				return err2
			}
			prev = i
			return nil
		})

	if !errors.Is(err, err2) {
		t.Fatalf("expected error %s, got %s", err2, err)
	}
	if prev != 20 {
		t.Fatalf("expected last item processed to be 20, got %d", prev)
	}
}

func TestRetryFuncs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := errors.New("err")

	// 1. Retry 6 times with exponential backoff up to 10ms.
	retry := LimitRetries(BackoffRetry(AlwaysRetry, time.Millisecond, 10*time.Millisecond), 6)

	t0 := time.Now()
	for i := 0; i < 10; i++ {
		if i < 6 {
			if !retry(ctx, err) {
				t.Fatalf("case 1: expected retry to succeed at attempt %d", i)
			}
		} else {
			if retry(ctx, err) {
				t.Fatalf("case 1: expected retry to fail at attempt %d", i)
			}
		}
	}
	tdiff := time.Since(t0)
	expectedDiff := time.Duration(1+2+4+8+10+10) * time.Millisecond

	if tdiff < expectedDiff || tdiff > 2*expectedDiff {
		t.Fatalf("case 1: expected backoff duration to be ~%s, it was %s", expectedDiff, tdiff)
	}

	// 2. Cancelling the context cuts a backoff short and stops retrying.
	retry = BackoffRetry(AlwaysRetry, time.Hour, time.Hour)
	cancelCtx, cancelBackoff := context.WithCancel(ctx)
	time.AfterFunc(10*time.Millisecond, cancelBackoff)
	t0 = time.Now()
	if retry(cancelCtx, err) {
		t.Fatalf("case 2: expected no retry after cancel")
	}
	if time.Since(t0) > time.Second {
		t.Fatalf("case 2: backoff was not interrupted")
	}

	// 3. RetryIf only accepts the matching errors.
	other := errors.New("other")
	retry = RetryIf(func(e error) bool { return errors.Is(e, err) })
	if !retry(ctx, err) || retry(ctx, other) {
		t.Fatalf("case 3: unexpected RetryIf result")
	}
}

func TestRetryBackoffCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// A source that always fails is retried until the deadline interrupts
	// the backoff.
	attempts := 0
	failing := FuncObservable[int](func(ctx context.Context, next func(int) error) error {
		attempts++
		return errors.New("unavailable")
	})
	t0 := time.Now()
	err := Retry(failing, BackoffRetry(AlwaysRetry, 5*time.Millisecond, time.Hour)).Observe(ctx, func(int) error { return nil })
	if err == nil {
		t.Fatalf("expected an error")
	}
	if time.Since(t0) > time.Second {
		t.Fatalf("expected the deadline to interrupt the backoff, took %s", time.Since(t0))
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
}
