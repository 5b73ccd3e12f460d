// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"sync"
)

// coalescingQueue is a bounded FIFO of keys where only the latest value
// of each key is kept. Pushing a key that is already queued replaces its
// value in place and never blocks.
type coalescingQueue[K comparable, V any] struct {
	mu      sync.Mutex
	changed *sync.Cond

	size   int
	keys   []K
	values map[K]V
	closed bool
}

func newCoalescingQueue[K comparable, V any](size int) *coalescingQueue[K, V] {
	if size < 1 {
		size = 1
	}
	q := &coalescingQueue[K, V]{
		size:   size,
		values: make(map[K]V, size),
	}
	q.changed = sync.NewCond(&q.mu)
	return q
}

// close wakes up all waiters. Queued values can still be popped.
func (q *coalescingQueue[K, V]) close() {
	q.mu.Lock()
	q.closed = true
	q.changed.Broadcast()
	q.mu.Unlock()
}

// push queues the value, blocking while the queue is full and the key is
// new. Values pushed after close are dropped.
func (q *coalescingQueue[K, V]) push(k K, v V) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.values[k]; queued {
		if !q.closed {
			q.values[k] = v
		}
		return
	}
	for !q.closed && len(q.keys) >= q.size {
		q.changed.Wait()
	}
	if q.closed {
		return
	}
	q.keys = append(q.keys, k)
	q.values[k] = v
	q.changed.Broadcast()
}

// pop blocks until a value is queued and returns it. False is returned
// once the queue is closed and drained.
func (q *coalescingQueue[K, V]) pop() (v V, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && len(q.keys) == 0 {
		q.changed.Wait()
	}
	if len(q.keys) == 0 {
		return v, false
	}
	k := q.keys[0]
	q.keys = q.keys[1:]
	v = q.values[k]
	delete(q.values, k)
	q.changed.Broadcast()
	return v, true
}
