// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestMulticast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	numSubs := 3

	expected := []int{1, 2, 3, 4, 5}

	in := make(chan int)

	// Create an unbuffered broadcast of 'in'
	src, connect := Multicast(MulticastParams{}, FromChannel(in))

	subErrs := make(chan error, numSubs)

	numReady := int32(0)

	for i := 0; i < numSubs; i++ {
		go func() {
			items, errs := ToChannels(ctx, src)
			index := 0
			ready := false
			for {
				select {
				case item := <-items:
					if item == 0 {
						if !ready {
							atomic.AddInt32(&numReady, 1)
							ready = true
						}
					} else {
						if item != expected[index] {
							subErrs <- fmt.Errorf("%d != %d", item, expected[index])
							return
						}
						index++
					}

				case err := <-errs:
					subErrs <- err
					return
				}
			}
		}()
	}

	connErrs := make(chan error)
	go func() { connErrs <- connect(ctx) }()

	// Synchronize with the subscriptions
	for atomic.LoadInt32(&numReady) != int32(numSubs) {
		in <- 0
	}

	// Feed in the actual test data.
	for _, i := range expected {
		in <- i
	}
	close(in)

	// Process errors from the subscribers
	for i := 0; i < numSubs; i++ {
		err := <-subErrs
		if err != nil {
			t.Errorf("error: %s", err)
		}
	}

	err := <-connErrs
	if err != nil {
		t.Fatalf("connect() error: %s", err)
	}
}

func TestMulticastMinSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, connect := Multicast(MulticastParams{BufferSize: 16, MinSubscribers: 2}, Range(0, 5))
	connErrs := make(chan error, 1)
	go func() { connErrs <- connect(ctx) }()

	wait1 := observeAsync(ctx, src)
	wait2 := observeAsync(ctx, src)

	for _, wait := range []func() ([]int, error){wait1, wait2} {
		xs, err := wait()
		assertNil(t, "subscriber", err)
		assertSlice(t, "subscriber", []int{0, 1, 2, 3, 4}, xs)
	}
	assertNil(t, "connect", <-connErrs)

	// connect gives up waiting when cancelled
	_, connect = Multicast(MulticastParams{MinSubscribers: 1}, Range(0, 5))
	cancel()
	if err := connect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %s", err)
	}
}

func TestMulticastCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	numSubs := 10

	src, connect := Multicast(MulticastParams{BufferSize: 100}, Range(0, 10000))

	subErrs := make(chan error, numSubs)

	for i := 0; i < numSubs; i++ {
		go func() {
			subErrs <- src.Observe(
				ctx,
				func(item int) error {
					time.Sleep(time.Millisecond)
					return nil
				})
		}()
	}

	connErrs := make(chan error, 1)
	go func() { connErrs <- connect(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	for i := 0; i < numSubs; i++ {
		err := <-subErrs
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("error: %s", err)
		}
	}

	err := <-connErrs
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("connect() error: %s", err)
	}
}

func TestMulticastReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expected := []int{0, 1, 2, 3, 4}
	lastItem := expected[len(expected)-1]

	src, connect := Multicast(MulticastParams{BufferSize: 16, Replay: 2, MinSubscribers: 1}, Concat(FromSlice(expected), Stuck[int]()))
	go connect(ctx)

	// Subscribe first to wait for all items to be emitted
	src.Observe(ctx, func(item int) error {
		if item == lastItem {
			return errors.New("stop")
		}
		return nil
	})

	// Then subscribe again to check that the latest items are replayed.
	xs, err := ToSlice(ctx, Take(2, src))
	assertNil(t, "Take", err)
	assertSlice(t, "replayed", []int{3, 4}, xs)
}

func BenchmarkMulticast(b *testing.B) {
	ctx := context.Background()
	s := make([]int, b.N)
	b.ResetTimer()

	count := 0
	mcast, connect := Multicast(MulticastParams{BufferSize: 16, MinSubscribers: 1}, FromSlice(s))

	go connect(ctx)
	err := mcast.Observe(
		ctx,
		func(item int) error {
			count++
			return nil
		})

	if err != nil {
		b.Fatal(err)
	}
	if count != b.N {
		b.Fatalf("expected %d items, got %d", b.N, count)
	}
}
