// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"sync"
)

// errStop completes a joint stream without an error.
var errStop = errors.New("stop")

type jointRequest struct {
	fn   func() error
	errs chan error
}

// joint observes several sources concurrently and runs their callbacks
// one at a time on the goroutine that called run(). This keeps the
// invariant that 'next' is called sequentially from the observing
// goroutine while still letting each source block on its own.
//
// State shared between callbacks needs no locking as long as it is only
// touched from functions passed to deliver.
type joint struct {
	ctx    context.Context
	cancel context.CancelFunc
	reqs   chan jointRequest
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newJoint(ctx context.Context) *joint {
	ctx, cancel := context.WithCancel(ctx)
	return &joint{
		ctx:    ctx,
		cancel: cancel,
		reqs:   make(chan jointRequest),
	}
}

// fail records the first error and cancels the remaining sources.
func (j *joint) fail(err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	if j.err == nil {
		j.err = err
	}
	j.mu.Unlock()
	j.cancel()
}

// spawn runs 'observe' on a new goroutine. A non-nil error from it terminates
// the joint stream. Safe to call from within a delivered function.
func (j *joint) spawn(observe func(ctx context.Context) error) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.fail(observe(j.ctx))
	}()
}

// deliver hands 'fn' to the run loop and waits for its result.
func (j *joint) deliver(fn func() error) error {
	req := jointRequest{fn, make(chan error, 1)}
	select {
	case <-j.ctx.Done():
		return j.ctx.Err()
	case j.reqs <- req:
	}
	return <-req.errs
}

// run executes delivered functions until every spawned goroutine has exited
// and returns the terminal error of the joint stream.
func (j *joint) run() error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	for {
		select {
		case req := <-j.reqs:
			if err := j.ctx.Err(); err != nil {
				req.errs <- err
				continue
			}
			err := req.fn()
			j.fail(err)
			req.errs <- err

		case <-done:
			j.cancel()
			j.mu.Lock()
			err := j.err
			j.mu.Unlock()
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
}

// forward returns a 'next' function for a source that hands its items
// to 'fn' on the run loop.
func forward[T any](j *joint, fn func(T) error) func(T) error {
	return func(item T) error {
		return j.deliver(func() error { return fn(item) })
	}
}
