// Package queue holds the pending input files between discovery and the
// workflow worker.
//
// The queue is an unbounded in-memory FIFO of paths. Producers (the startup
// scan and the directory watcher) push; the single worker blocks in Pop until
// a path arrives, the queue is closed, or its context ends. Paths are not
// deduplicated: a file created twice is encoded twice.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a blocking FIFO of file paths, safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	items  []string
	closed bool
	// wake is closed and replaced whenever items or closed change, releasing
	// every waiter blocked in Pop.
	wake chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{})}
}

// Push appends a path. It reports false when the queue is closed.
func (q *Queue) Push(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, path)
	q.signalLocked()
	return true
}

// Pop removes and returns the oldest path, blocking while the queue is empty.
// Items pushed before Close are still returned; after that Pop returns ErrClosed.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			path := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return path, nil
		}
		if q.closed {
			q.mu.Unlock()
			return "", ErrClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wake:
		}
	}
}

// Len reports the number of pending paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns the pending paths in dequeue order.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}

// Close stops further pushes and wakes blocked consumers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signalLocked()
}

func (q *Queue) signalLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}
