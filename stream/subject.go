// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"slices"
	"sync"
)

// Subject is a hot observable that is fed explicitly with Next and Complete.
//
// Next is synchronous: it returns once every subscriber registered at the
// time of the call has processed the item (or has gone away). Emitting into
// a subject from one of its own observers therefore deadlocks.
type Subject[T any] struct {
	emitMu sync.Mutex // serializes Next and Complete

	mu          sync.Mutex
	subs        []*subscriber[T]
	changed     chan struct{}
	replay      int
	replayAfter bool
	buffer      []T
	completed   bool
	err         error
	done        chan struct{}
}

type subscriber[T any] struct {
	items chan T
	acks  chan struct{}
	gone  chan struct{}
}

func newSubject[T any](replay int, replayAfter bool) *Subject[T] {
	return &Subject[T]{
		changed:     make(chan struct{}),
		replay:      replay,
		replayAfter: replayAfter,
		done:        make(chan struct{}),
	}
}

// NewPublishSubject returns a subject that only emits items pushed after
// subscribing.
func NewPublishSubject[T any]() *Subject[T] {
	return newSubject[T](0, false)
}

// NewBehaviorSubject returns a subject that starts with 'init' and replays
// the latest item to new subscribers.
func NewBehaviorSubject[T any](init T) *Subject[T] {
	s := newSubject[T](1, false)
	s.buffer = []T{init}
	return s
}

// NewReplaySubject returns a subject that replays the last 'n' items to new
// subscribers, also after completion. A negative 'n' replays everything.
func NewReplaySubject[T any](n int) *Subject[T] {
	return newSubject[T](n, true)
}

// Next emits 'item' to all current subscribers. No-op after Complete.
func (s *Subject[T]) Next(item T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.remember(item)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.items <- item:
			select {
			case <-sub.acks:
			case <-sub.gone:
			}
		case <-sub.gone:
		}
	}
}

func (s *Subject[T]) remember(item T) {
	if s.replay == 0 {
		return
	}
	s.buffer = append(s.buffer, item)
	if s.replay > 0 && len(s.buffer) > s.replay {
		s.buffer = slices.Delete(s.buffer, 0, len(s.buffer)-s.replay)
	}
}

// Complete terminates all subscribers with 'err' (nil for successful completion).
// Only the first call has an effect.
func (s *Subject[T]) Complete(err error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	s.completed = true
	s.err = err
	close(s.done)
}

// Value returns the latest remembered item. Only meaningful for behavior
// and replay subjects.
func (s *Subject[T]) Value() (item T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffer) == 0 {
		return
	}
	return s.buffer[len(s.buffer)-1], true
}

// Subscribers returns the number of current subscribers.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// WaitSubscribers blocks until at least 'n' subscribers are registered.
func (s *Subject[T]) WaitSubscribers(ctx context.Context, n int) error {
	return s.waitCount(ctx, func(count int) bool { return count >= n })
}

// WaitIdle blocks until every subscriber has gone away.
func (s *Subject[T]) WaitIdle(ctx context.Context) error {
	return s.waitCount(ctx, func(count int) bool { return count == 0 })
}

func (s *Subject[T]) waitCount(ctx context.Context, ok func(int) bool) error {
	for {
		s.mu.Lock()
		if ok(len(s.subs)) {
			s.mu.Unlock()
			return nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (s *Subject[T]) notifyChanged() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Subject[T]) Observe(ctx context.Context, next func(T) error) error {
	s.mu.Lock()
	replayed := slices.Clone(s.buffer)
	if s.completed {
		err := s.err
		s.mu.Unlock()
		if s.replayAfter {
			for _, item := range replayed {
				if err := next(item); err != nil {
					return err
				}
			}
		}
		return err
	}
	sub := &subscriber[T]{
		items: make(chan T),
		acks:  make(chan struct{}),
		gone:  make(chan struct{}),
	}
	s.subs = append(s.subs, sub)
	s.notifyChanged()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.subs = slices.DeleteFunc(s.subs, func(other *subscriber[T]) bool { return other == sub })
		close(sub.gone)
		s.notifyChanged()
		s.mu.Unlock()
	}()

	for _, item := range replayed {
		if err := next(item); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			s.mu.Lock()
			err := s.err
			s.mu.Unlock()
			return err
		case item := <-sub.items:
			if err := next(item); err != nil {
				return err
			}
			sub.acks <- struct{}{}
		}
	}
}

// Relay is a behavior value that never completes. Observers receive the
// current value on subscription and every value accepted after it.
type Relay[T any] struct {
	mu      sync.Mutex
	subject *Subject[T]
}

func NewRelay[T any](init T) *Relay[T] {
	return &Relay[T]{subject: NewBehaviorSubject(init)}
}

// Value returns the current value.
func (r *Relay[T]) Value() T {
	v, _ := r.subject.Value()
	return v
}

// Accept sets the value and waits for the observers to process it.
func (r *Relay[T]) Accept(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subject.Next(v)
}

// Update atomically replaces the value with f(current) and returns the new value.
func (r *Relay[T]) Update(f func(T) T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := f(r.Value())
	r.subject.Next(v)
	return v
}

func (r *Relay[T]) WaitSubscribers(ctx context.Context, n int) error {
	return r.subject.WaitSubscribers(ctx, n)
}

func (r *Relay[T]) Observe(ctx context.Context, next func(T) error) error {
	return r.subject.Observe(ctx, next)
}
