// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"sync"
)

type MulticastParams struct {
	// BufferSize is the number of items to buffer per observer before backpressure
	// towards the source.
	BufferSize int

	// Replay is the number of most recent items handed to a new observer
	// when it subscribes.
	Replay int

	// MinSubscribers is the number of observers connect waits for before
	// it starts observing the source.
	MinSubscribers int
}

var DefaultMulticastParams = MulticastParams{BufferSize: 16}

// Multicast creates a publish-subscribe observable that "multicasts" items
// from the 'src' observable to subscribers.
//
// Returns the wrapped observable and a function to connect observers to the
// source observable. Connect will block until source observable completes and
// returns the error if any from the source observable.
//
// Observers can subscribe both before and after the source has been connected,
// but may miss events if subscribing after connect unless Replay is set.
func Multicast[T any](params MulticastParams, src Observable[T]) (mcast Observable[T], connect func(context.Context) error) {
	var (
		mu           sync.Mutex
		subID        int
		subs         = make(map[int]chan T)
		joined       = make(chan struct{})
		observeError error
		replay       []T
	)

	// Separate context for signalling to subscribers that the source has finished.
	mcastCtx, cancel := context.WithCancel(context.Background())

	finish := func(err error) error {
		mu.Lock()
		observeError = err
		mu.Unlock()
		cancel()
		return err
	}

	connect = func(ctx context.Context) error {
		for {
			mu.Lock()
			n, changed := len(subs), joined
			mu.Unlock()
			if n >= params.MinSubscribers {
				break
			}
			select {
			case <-ctx.Done():
				return finish(ctx.Err())
			case <-changed:
			}
		}

		return finish(src.Observe(
			ctx,
			func(item T) error {
				mu.Lock()
				defer mu.Unlock()
				if params.Replay > 0 {
					replay = append(replay, item)
					if len(replay) > params.Replay {
						replay = replay[1:]
					}
				}
				for _, sub := range subs {
					sub <- item
				}
				return nil
			}))
	}

	mcast = FuncObservable[T](
		func(subCtx context.Context, next func(T) error) error {
			mu.Lock()
			thisID := subID
			subID++
			items := make(chan T, params.BufferSize)
			subs[thisID] = items
			replayed := append([]T(nil), replay...)
			close(joined)
			joined = make(chan struct{})
			mu.Unlock()

			leave := func(err error) error {
				// Drain to unblock the source until we hold the lock.
				go func() {
					for range items {
					}
				}()
				mu.Lock()
				close(items)
				delete(subs, thisID)
				mu.Unlock()
				return err
			}

			for _, item := range replayed {
				if err := next(item); err != nil {
					return leave(err)
				}
			}

			for {
				select {
				case <-mcastCtx.Done():
					// The source has finished and holds no reference to
					// 'items' anymore, so it can be closed and drained here.
					mu.Lock()
					err := observeError
					delete(subs, thisID)
					mu.Unlock()
					close(items)
					for item := range items {
						if errNext := next(item); errNext != nil {
							return errNext
						}
					}
					return err

				case <-subCtx.Done():
					return leave(subCtx.Err())

				case item := <-items:
					if err := next(item); err != nil {
						return leave(err)
					}
				}
			}
		})

	return
}
