// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joamaki/rxplay/stream"
)

// subscription is an observer running on its own goroutine.
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// subscribe observes 'src' on a new goroutine. 'onDone' is called with the
// terminal error unless the subscription was disposed.
func subscribe[T any](ctx context.Context, src stream.Observable[T], onNext func(T), onDone func(error)) *subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		err := src.Observe(ctx, func(item T) error {
			onNext(item)
			return nil
		})
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		if onDone != nil {
			onDone(err)
		}
	}()
	return sub
}

// wait blocks until the observed stream terminates.
func (s *subscription) wait() {
	<-s.done
}

// dispose cancels the subscription and waits for it to go away.
func (s *subscription) dispose() {
	s.cancel()
	<-s.done
}

// printEvents returns observer functions that print every item followed by
// "Completed" or the error.
func printEvents[T any](env Env) (func(T), func(error)) {
	onNext := func(item T) { env.println(item) }
	onDone := func(err error) {
		if err != nil {
			env.println(err.Error())
			return
		}
		env.println("Completed")
	}
	return onNext, onDone
}

type waiter interface {
	WaitSubscribers(ctx context.Context, n int) error
}

// subscribed waits for each of the subjects to have at least 'n' subscribers.
func subscribed(ctx context.Context, n int, subjects ...waiter) error {
	for _, s := range subjects {
		if err := s.WaitSubscribers(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// quoteList formats words as a list literal, e.g. ["two", "hundred"].
func quoteList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

var (
	ones = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tens = []string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
	}
	scales = []struct {
		value int
		name  string
	}{
		{1_000_000_000, "billion"},
		{1_000_000, "million"},
		{1000, "thousand"},
		{100, "hundred"},
	}
)

// spellOut spells out a number in English words, e.g. 123 is
// "one hundred twenty-three".
func spellOut(n int) string {
	if n < 0 {
		return "minus " + spellOut(-n)
	}
	if n < 20 {
		return ones[n]
	}
	if n < 100 {
		if n%10 == 0 {
			return tens[n/10]
		}
		return tens[n/10] + "-" + ones[n%10]
	}
	for _, s := range scales {
		if n >= s.value {
			words := spellOut(n/s.value) + " " + s.name
			if rest := n % s.value; rest > 0 {
				words += " " + spellOut(rest)
			}
			return words
		}
	}
	panic("unreachable")
}

// timeline prints the events of concurrently running observers with the
// time they happened at.
type timeline struct {
	mu     sync.Mutex
	env    Env
	start  time.Time
	second time.Duration
}

func newTimeline(env Env) *timeline {
	return &timeline{env: env, start: time.Now(), second: env.Second}
}

func (tl *timeline) event(lane string, value any) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	elapsed := float64(time.Since(tl.start)) / float64(tl.second)
	tl.env.printf("%5.1fs %-10s %v\n", elapsed, lane, value)
}

// observer returns functions for subscribe that put the events of a
// stream on the timeline.
func observer[T any](tl *timeline, lane string) (func(T), func(error)) {
	return func(item T) { tl.event(lane, item) },
		func(err error) {
			if err != nil {
				tl.event(lane, "error: "+err.Error())
				return
			}
			tl.event(lane, "completed")
		}
}
