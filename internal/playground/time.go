// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joamaki/rxplay/stream"
)

func init() {
	register(Timing,
		Example{Name: "buffer", Run: buffer},
		Example{Name: "replay", Run: replay},
		Example{Name: "window", Run: window},
	)
}

// emitEvery calls 'emit' every 'interval' until 'duration' has passed.
func emitEvery(ctx context.Context, interval, duration time.Duration, emit func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(duration)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-ticker.C:
			emit()
		}
	}
}

// Emits 0.7 cats per second, buffered into groups of at most 5 every 5
// seconds.
func buffer(ctx context.Context, env Env) error {
	const (
		elementsPerSecond = 0.7
		bufferMaxCount    = 5
	)
	bufferTimeSpan := 5 * env.Second

	tl := newTimeline(env)
	source := stream.NewPublishSubject[string]()

	counts := stream.Map(stream.BufferTime[string](source, bufferTimeSpan, bufferMaxCount),
		func(b []string) int { return len(b) })

	onNext, onDone := observer[string](tl, "emitted")
	emitted := subscribe(ctx, stream.Observable[string](source), onNext, onDone)
	onCount, onCountDone := observer[int](tl, "buffered")
	buffered := subscribe(ctx, counts, onCount, onCountDone)
	if err := subscribed(ctx, 2, source); err != nil {
		return err
	}

	interval := time.Duration(float64(env.Second) / elementsPerSecond)
	err := emitEvery(ctx, interval, 12*env.Second, func() { source.Next("😹") })
	source.Complete(nil)
	emitted.wait()
	buffered.wait()
	return err
}

// Ticks once a second. The second observer joins after 3 seconds and is
// first handed the 2 latest ticks.
func replay(ctx context.Context, env Env) error {
	const (
		maxElements    = 5
		replayElements = 2
	)
	replayDelay := 3 * env.Second

	tl := newTimeline(env)
	source, connect := stream.Multicast(
		stream.MulticastParams{BufferSize: maxElements, Replay: replayElements, MinSubscribers: 1},
		stream.Take(maxElements, stream.Map(stream.Interval(env.Second), func(n int) int { return n + 1 })))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return connect(ctx) })
	onNext, onDone := observer[int](tl, "source")
	first := subscribe(ctx, source, onNext, onDone)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(replayDelay):
		}
		onNext, onDone := observer[int](tl, "replayed")
		subscribe(ctx, source, onNext, onDone).wait()
		return nil
	})
	first.wait()
	return g.Wait()
}

// Emits an "a" every second into windows of at most 10 items every 4
// seconds.
func window(ctx context.Context, env Env) error {
	const windowMaxCount = 10
	windowTimeSpan := 4 * env.Second

	tl := newTimeline(env)
	source := stream.NewPublishSubject[string]()

	windows := 0
	windowed := stream.MergeAll(
		stream.Map(stream.Window[string](source, windowTimeSpan, windowMaxCount),
			func(w stream.Observable[string]) stream.Observable[string] {
				windows++
				lane := fmt.Sprintf("window %d", windows)
				return stream.Concat(
					stream.Map(w, func(item string) string { return lane + ": " + item }),
					stream.Just(lane+": completed"))
			}),
		0)

	onNext, onDone := observer[string](tl, "emitted")
	emitted := subscribe(ctx, stream.Observable[string](source), onNext, onDone)
	onWindowed, onWindowedDone := observer[string](tl, "windowed")
	windowedSub := subscribe(ctx, windowed, onWindowed, onWindowedDone)
	if err := subscribed(ctx, 2, source); err != nil {
		return err
	}

	err := emitEvery(ctx, env.Second, 10*env.Second, func() { source.Next("a") })
	source.Complete(nil)
	emitted.wait()
	windowedSub.wait()
	return err
}
