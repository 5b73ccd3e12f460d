// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"context"
	"fmt"
	"time"

	"github.com/joamaki/rxplay/stream"
)

func init() {
	register(Combining,
		Example{Name: "startWith", Run: startWith},
		Example{Name: "concat", Run: concat},
		Example{Name: "concatMap", Run: concatMap},
		Example{Name: "merge", Run: merge},
		Example{Name: "combineLatest", Run: combineLatest},
		Example{Name: "combineLatest with date styles", Run: combineLatestDates},
		Example{Name: "zip", Run: zip},
		Example{Name: "withLatestFrom and sample", Run: withLatestFrom},
		Example{Name: "amb", Run: amb},
		Example{Name: "switchLatest", Run: switchLatest},
		Example{Name: "reduce", Run: reduce},
		Example{Name: "scan", Run: scan},
	)
}

func printer[T any](env Env) func(T) {
	return func(item T) { env.println(item) }
}

func startWith(ctx context.Context, env Env) error {
	subscribe(ctx, stream.StartWith(stream.Of(1, 2, 3, 4), 1, 3), printer[int](env), nil).wait()
	return nil
}

func concat(ctx context.Context, env Env) error {
	subscribe(ctx,
		stream.Concat(stream.Of(1, 3, 5, 7, 9), stream.Of(2, 4, 6, 8, 0)),
		printer[int](env), nil).wait()
	return nil
}

func concatMap(ctx context.Context, env Env) error {
	cities := map[string]stream.Observable[string]{
		"Germany": stream.Of("Berlin", "Münich", "Frankfurt"),
		"Spain":   stream.Of("Madrid", "Barcelona", "Valencia"),
	}
	observable := stream.FlatMap(stream.Of("Germany", "Spain"), func(country string) stream.Observable[string] {
		if src, ok := cities[country]; ok {
			return src
		}
		return stream.Empty[string]()
	})
	subscribe(ctx, observable, printer[string](env), nil).wait()
	return nil
}

// mergeCities emits the cities into 'left' and 'right' in a random
// interleaving.
func mergeCities(env Env, left, right *stream.Subject[string]) {
	leftValues := []string{"Berlin", "Munich", "Frankfurt"}
	rightValues := []string{"Madrid", "Barcelona", "Valencia"}
	for len(leftValues) > 0 || len(rightValues) > 0 {
		if env.Rand.IntN(2) == 0 {
			if len(leftValues) > 0 {
				left.Next("Left:  " + leftValues[0])
				leftValues = leftValues[1:]
			}
		} else if len(rightValues) > 0 {
			right.Next("Right: " + rightValues[0])
			rightValues = rightValues[1:]
		}
	}
}

func merge(ctx context.Context, env Env) error {
	left := stream.NewPublishSubject[string]()
	right := stream.NewPublishSubject[string]()
	source := stream.Of[stream.Observable[string]](left, right)
	sub := subscribe(ctx, stream.MergeAll(source, 0), printer[string](env), nil)
	if err := subscribed(ctx, 1, left, right); err != nil {
		return err
	}
	mergeCities(env, left, right)
	sub.dispose()
	return nil
}

func combineLatest(ctx context.Context, env Env) error {
	left := stream.NewPublishSubject[string]()
	right := stream.NewPublishSubject[string]()
	observable := stream.CombineLatest2[string, string](left, right, func(lastLeft, lastRight string) string {
		return lastLeft + " " + lastRight
	})
	sub := subscribe(ctx, observable, printer[string](env), nil)
	if err := subscribed(ctx, 1, left, right); err != nil {
		return err
	}
	env.println("> Sending a value to Left")
	left.Next("Hello,")
	env.println("> Sending a value to Right")
	right.Next("world")
	env.println("> Sending another value to Right")
	right.Next("RxSwift")
	env.println("> Sending another value to Left")
	left.Next("Have a good day, ")
	sub.dispose()
	return nil
}

type dateStyle string

const (
	shortDate dateStyle = "1/2/06"
	longDate  dateStyle = "January 2, 2006"
)

// The styles are both emitted before any date, so only the long style is
// ever combined.
func combineLatestDates(ctx context.Context, env Env) error {
	choice := stream.NewPublishSubject[dateStyle]()
	dates := stream.NewPublishSubject[time.Time]()
	observable := stream.CombineLatest2[dateStyle, time.Time](choice, dates, func(style dateStyle, when time.Time) string {
		return when.Format(string(style))
	})
	sub := subscribe(ctx, observable, printer[string](env), nil)
	if err := subscribed(ctx, 1, choice, dates); err != nil {
		return err
	}
	choice.Next(shortDate)
	choice.Next(longDate)
	now := env.Now()
	dates.Next(now)
	dates.Next(now.Add(7 * 24 * time.Hour))
	choice.Complete(nil)
	dates.Complete(nil)
	sub.wait()
	return nil
}

func zip(ctx context.Context, env Env) error {
	left := stream.Of("sunny", "cloudy", "cloudy", "sunny")
	right := stream.Of("Lisbon", "Copenhagen", "London", "Madrid", "Vienna")
	observable := stream.Map(stream.Zip2(left, right), func(t stream.Tuple2[string, string]) string {
		return fmt.Sprintf("It's %s in %s", t.V1, t.V2)
	})
	subscribe(ctx, observable, printer[string](env), nil).wait()
	return nil
}

// The button is pressed twice after typing. withLatestFrom emits on both
// presses while sample only emits when the text has changed.
func withLatestFrom(ctx context.Context, env Env) error {
	button := stream.NewPublishSubject[struct{}]()
	textField := stream.NewPublishSubject[string]()

	latest := stream.WithLatestFrom[struct{}, string](button, textField, func(_ struct{}, text string) string { return text })
	sub1 := subscribe(ctx, latest, func(v string) { env.println("1)", v) }, nil)
	defer sub1.dispose()
	// Subscribe one at a time so that each press reaches withLatestFrom first.
	if err := subscribed(ctx, 1, button, textField); err != nil {
		return err
	}
	sampled := stream.Sample[string, struct{}](textField, button)
	sub2 := subscribe(ctx, sampled, func(v string) { env.println("2)", v) }, nil)
	defer sub2.dispose()
	if err := subscribed(ctx, 2, button, textField); err != nil {
		return err
	}

	textField.Next("Par")
	textField.Next("Pari")
	textField.Next("Paris")
	button.Next(struct{}{})
	button.Next(struct{}{})
	return nil
}

func amb(ctx context.Context, env Env) error {
	left := stream.NewPublishSubject[string]()
	right := stream.NewPublishSubject[string]()
	sub := subscribe(ctx, stream.Amb[string](left, right), printer[string](env), nil)
	if err := subscribed(ctx, 1, left, right); err != nil {
		return err
	}
	right.Next("Copenhagen")
	left.Next("Lisbon")
	left.Next("London")
	left.Next("Madrid")
	right.Next("Vienna")
	sub.dispose()
	return nil
}

func switchLatest(ctx context.Context, env Env) error {
	one := stream.NewPublishSubject[string]()
	two := stream.NewPublishSubject[string]()
	three := stream.NewPublishSubject[string]()
	source := stream.NewPublishSubject[stream.Observable[string]]()

	sub := subscribe(ctx, stream.SwitchLatest[string](source), printer[string](env), nil)
	defer sub.dispose()
	if err := subscribed(ctx, 1, source); err != nil {
		return err
	}
	// switchTo makes 'next' the followed sequence once it is subscribed to.
	switchTo := func(next *stream.Subject[string]) error {
		// A sequence followed earlier must first be let go of.
		if err := next.WaitIdle(ctx); err != nil {
			return err
		}
		source.Next(next)
		return next.WaitSubscribers(ctx, 1)
	}

	if err := switchTo(one); err != nil {
		return err
	}
	one.Next("Some text from sequence one")
	two.Next("Some text from sequence two")

	if err := switchTo(two); err != nil {
		return err
	}
	two.Next("More text from sequence two")
	one.Next("and also from sequence one")

	if err := switchTo(three); err != nil {
		return err
	}
	two.Next("Why don't you see me?")
	one.Next("I'm alone, help me")
	three.Next("Hey it's three. I win.")

	if err := switchTo(one); err != nil {
		return err
	}
	one.Next("Nope. It's me, one!")
	return nil
}

func reduce(ctx context.Context, env Env) error {
	sum := stream.Reduce(stream.Of(1, 3, 5, 7, 9), 0, func(acc, n int) int { return acc + n })
	subscribe(ctx, sum, printer[int](env), nil).wait()
	return nil
}

// The running total is zipped with the number that produced it.
func scan(ctx context.Context, env Env) error {
	source := stream.Of(1, 3, 5, 7, 9)
	totals := stream.Scan(source, 0, func(acc, n int) int { return acc + n })
	observable := stream.Map(stream.Zip2(source, totals), func(t stream.Tuple2[int, int]) string {
		return fmt.Sprintf("(%d, %d)", t.V1, t.V2)
	})
	subscribe(ctx, observable, printer[string](env), nil).wait()
	return nil
}
