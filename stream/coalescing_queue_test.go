// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"testing"
	"time"
)

func TestCoalescingQueue(t *testing.T) {
	q := newCoalescingQueue[int, string](16)

	q.push(1, "one")
	q.push(2, "two")
	q.push(1, "oneone")
	q.push(3, "three")

	// 1. Latest value of a key, in the order the keys were first queued.
	for _, want := range []string{"oneone", "two"} {
		v, ok := q.pop()
		if !ok || v != want {
			t.Fatalf("case 1: expected %q, got %q (ok %v)", want, v, ok)
		}
	}

	// 2. Draining after close.
	q.close()
	if v, ok := q.pop(); !ok || v != "three" {
		t.Fatalf("case 2: expected \"three\", got %q (ok %v)", v, ok)
	}

	// 3. Push after close is dropped.
	q.push(1, "oneoneone")
	if _, ok := q.pop(); ok {
		t.Fatalf("case 3: expected pop to fail after closing and draining")
	}
}

func TestCoalescingQueueFull(t *testing.T) {
	q := newCoalescingQueue[int, int](1)
	q.push(1, 1)

	// 1. Updating a queued key does not block on a full queue.
	q.push(1, 2)

	// 2. A new key blocks until there is room.
	pushed := make(chan struct{})
	go func() {
		q.push(2, 3)
		close(pushed)
	}()
	select {
	case <-pushed:
		t.Fatalf("case 2: expected push to block")
	case <-time.After(20 * time.Millisecond):
	}
	if v, _ := q.pop(); v != 2 {
		t.Fatalf("case 2: expected 2, got %d", v)
	}
	<-pushed
	if v, _ := q.pop(); v != 3 {
		t.Fatalf("case 2: expected 3, got %d", v)
	}

	// 3. Close releases a blocked pop.
	popped := make(chan bool)
	go func() {
		_, ok := q.pop()
		popped <- ok
	}()
	time.Sleep(5 * time.Millisecond)
	q.close()
	if <-popped {
		t.Fatalf("case 3: expected pop to fail")
	}
}
