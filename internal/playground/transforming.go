// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"context"
	"strconv"

	"github.com/joamaki/rxplay/internal/dialer"
	"github.com/joamaki/rxplay/stream"
)

func init() {
	register(Transforming,
		Example{Name: "toArray", Run: toArray},
		Example{Name: "map", Run: mapSpellOut},
		Example{Name: "enumerated and map", Run: enumeratedMap},
		Example{Name: "compactMap", Run: compactMap},
		Example{Name: "flatMap", Run: flatMap},
		Example{Name: "flatMapLatest", Run: flatMapLatest},
		Example{Name: "Challenge: phone dialer", Run: dialChallenge},
	)
}

func toArray(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[string](env)
	subscribe(ctx,
		stream.Map(stream.ToArray(stream.Of("A", "B", "C")), quoteList),
		onNext, onDone).wait()
	return nil
}

func mapSpellOut(ctx context.Context, env Env) error {
	onNext, onDone := printEvents[string](env)
	subscribe(ctx, stream.Map(stream.Of(123, 4, 56), spellOut), onNext, onDone).wait()
	return nil
}

type indexed struct {
	index, value int
}

// Doubles the numbers after the third one.
func enumeratedMap(ctx context.Context, env Env) error {
	enumerated := stream.Scan(stream.Of(1, 2, 3, 4, 5, 6), indexed{index: -1},
		func(prev indexed, n int) indexed { return indexed{prev.index + 1, n} })
	doubled := stream.Map(enumerated, func(x indexed) int {
		if x.index > 2 {
			return x.value * 2
		}
		return x.value
	})
	onNext, onDone := printEvents[int](env)
	subscribe(ctx, doubled, onNext, onDone).wait()
	return nil
}

func compactMap(ctx context.Context, env Env) error {
	numbers := stream.CompactMap(stream.Of("1", "two", "3"), func(s string) (int, bool) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	})
	onNext, onDone := printEvents[int](env)
	subscribe(ctx, numbers, onNext, onDone).wait()
	return nil
}

type student struct {
	score *stream.Subject[int]
}

func newStudent(score int) student {
	return student{score: stream.NewBehaviorSubject(score)}
}

// studentScores is the setup shared by the flatMap examples. 'flatten'
// turns the stream of students into a stream of scores. Each step waits
// for the scores it prints since the score of a new student arrives from
// an inner subscription set up asynchronously.
func studentScores(ctx context.Context, env Env, followsAll bool, flatten func(stream.Observable[student]) stream.Observable[int]) error {
	laura := newStudent(80)
	charlotte := newStudent(90)
	students := stream.NewPublishSubject[student]()

	printed := make(chan struct{}, 8)
	sub := subscribe(ctx, flatten(students),
		func(score int) {
			env.println(score)
			printed <- struct{}{}
		},
		nil)
	defer sub.dispose()
	if err := subscribed(ctx, 1, students); err != nil {
		return err
	}

	lauraPrints := 0
	if followsAll {
		lauraPrints = 1
	}
	steps := []struct {
		action func()
		prints int
	}{
		{func() { students.Next(laura) }, 1},
		{func() { laura.score.Next(85) }, 1},
		{func() { students.Next(charlotte) }, 1},
		{func() { laura.score.Next(95) }, lauraPrints},
		{func() { charlotte.score.Next(100) }, 1},
	}
	for _, step := range steps {
		step.action()
		for range step.prints {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-printed:
			}
		}
	}
	return nil
}

func flatMap(ctx context.Context, env Env) error {
	return studentScores(ctx, env, true, func(students stream.Observable[student]) stream.Observable[int] {
		return stream.MergeAll(
			stream.Map(students, func(s student) stream.Observable[int] { return s.score }),
			0)
	})
}

// Only the latest student is followed: Laura's 95 is never seen.
func flatMapLatest(ctx context.Context, env Env) error {
	return studentScores(ctx, env, false, func(students stream.Observable[student]) stream.Observable[int] {
		return stream.SwitchMap(students, func(s student) stream.Observable[int] { return s.score })
	})
}

func dialChallenge(ctx context.Context, env Env) error {
	onNext, _ := printEvents[string](env)
	subscribe(ctx, dialer.Dial(stream.Of(0, 4, 0, 8, 5, 5, 5, 1, 2, 1, 2, 9)), onNext, nil).wait()
	subscribe(ctx, dialer.DialKeys(stream.Of("1", "1", "1", "a", "b", "c", "d", "e", "f", "3")), onNext, nil).wait()
	return nil
}
