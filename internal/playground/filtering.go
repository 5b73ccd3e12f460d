// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/joamaki/rxplay/stream"
)

func init() {
	register(Filtering,
		Example{Name: "Ignore Element", Run: ignoreElements},
		Example{Name: "Element at", Run: elementAt},
		Example{Name: "Filter", Run: filter},
		Example{Name: "Skipping", Run: skip},
		Example{Name: "Skip while", Run: skipWhile},
		Example{Name: "Skip until", Run: skipUntil},
		Example{Name: "Taking", Run: take},
		Example{Name: "Take while", Run: takeWhile},
		Example{Name: "Take until", Run: takeUntil},
		Example{Name: "Distinct until changed", Run: distinctUntilChanged},
		Example{Name: "Distinct until changed with comparer", Run: distinctUntilChangedFunc},
	)
}

func callTest(s *stream.Subject[string]) {
	s.Next("Hello")
	s.Next("It's me")
	s.Next("Adele")
}

func ignoreElements(ctx context.Context, env Env) error {
	strikes := stream.NewPublishSubject[string]()
	sub := subscribe(ctx, stream.IgnoreElements[string](strikes),
		func(string) {},
		func(err error) {
			if err != nil {
				env.println("Error:", err.Error())
				return
			}
			env.println("Complete")
		})
	if err := subscribed(ctx, 1, strikes); err != nil {
		return err
	}
	strikes.Next("hello")
	strikes.Next("it's me")
	strikes.Next("Adele")
	strikes.Complete(nil)
	sub.wait()
	return nil
}

func elementAt(ctx context.Context, env Env) error {
	strikes := stream.NewPublishSubject[string]()
	onNext, onDone := printEvents[string](env)
	sub := subscribe(ctx, stream.ElementAt[string](2, strikes), onNext, onDone)
	if err := subscribed(ctx, 1, strikes); err != nil {
		return err
	}
	callTest(strikes)
	sub.wait()
	return nil
}

func filter(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[int](env)
	subscribe(ctx,
		stream.Filter(stream.Of(1, 2, 3, 4, 5, 6), func(n int) bool { return n%2 == 0 }),
		onNext, onDone).wait()
	return nil
}

func skip(ctx context.Context, env Env) error {
	strikes := stream.NewPublishSubject[string]()
	onNext, onDone := printEvents[string](env)
	sub := subscribe(ctx, stream.Skip[string](2, strikes), onNext, onDone)
	if err := subscribed(ctx, 1, strikes); err != nil {
		return err
	}
	callTest(strikes)
	sub.dispose()
	return nil
}

func skipWhile(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[int](env)
	subscribe(ctx,
		stream.SkipWhile(func(n int) bool { return n%2 == 1 }, stream.Of(1, 2, 3, 4, 5, 6)),
		onNext, onDone).wait()
	return nil
}

func skipUntil(ctx context.Context, env Env) error {
	subject := stream.NewPublishSubject[string]()
	trigger := stream.NewPublishSubject[int]()
	onNext, onDone := printEvents[string](env)
	sub := subscribe(ctx, stream.SkipUntil[string, int](trigger, subject), onNext, onDone)
	if err := subscribed(ctx, 1, subject, trigger); err != nil {
		return err
	}
	subject.Next("Begin test")
	subject.Next("But not begin yet, waiting for trigger")
	trigger.Next(1)
	callTest(subject)
	sub.dispose()
	return nil
}

func take(ctx context.Context, env Env) error {
	subject := stream.NewPublishSubject[string]()
	onNext, onDone := printEvents[string](env)
	sub := subscribe(ctx, stream.Take[string](1, subject), onNext, onDone)
	if err := subscribed(ctx, 1, subject); err != nil {
		return err
	}
	callTest(subject)
	sub.wait()
	return nil
}

func takeWhile(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[int](env)
	subscribe(ctx,
		stream.TakeWhile(func(n int) bool { return n%2 == 1 }, stream.Of(1, 3, 5, 2, 5, 6)),
		onNext, onDone).wait()
	return nil
}

func takeUntil(ctx context.Context, env Env) error {
	subject := stream.NewPublishSubject[string]()
	trigger := stream.NewPublishSubject[int]()
	onNext, onDone := printEvents[string](env)
	sub := subscribe(ctx, stream.TakeUntil[string, int](trigger, subject), onNext, onDone)
	if err := subscribed(ctx, 1, subject, trigger); err != nil {
		return err
	}
	subject.Next("Begin test")
	subject.Next("But not begin yet, waiting for trigger")
	trigger.Next(1)
	callTest(subject)
	sub.wait()
	return nil
}

func distinctUntilChanged(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[string](env)
	subscribe(ctx,
		stream.DistinctUntilChanged(stream.Of("A", "A", "B", "B", "A", "A")),
		onNext, onDone).wait()
	return nil
}

// Two numbers are equal if their spelled out forms share a word.
func distinctUntilChangedFunc(ctx context.Context, env Env) error {
	equal := func(a, b int) bool {
		aWords := strings.Fields(spellOut(a))
		bWords := strings.Fields(spellOut(b))
		env.println(quoteList(aWords))
		env.println(quoteList(bWords))
		return slices.ContainsFunc(aWords, func(w string) bool { return slices.Contains(bWords, w) })
	}
	onNext, onDone := printEvents[string](env)
	numbers := stream.DistinctUntilChangedFunc(stream.Of(10, 110, 20, 200, 210, 310), equal)
	subscribe(ctx, stream.Map(numbers, strconv.Itoa), onNext, onDone).wait()
	return nil
}
