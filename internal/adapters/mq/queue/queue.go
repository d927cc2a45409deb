// Package queue provides a bounded in-memory queue of ballots waiting for a
// voter.
package queue

import (
	"context"
	"sync"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Ballot is the payload flowing through the queue.
type Ballot = model.Ballot

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a ballot. It returns ErrFull or ErrClosed instead of blocking.
	Enqueue(ctx context.Context, b Ballot) error

	// Dequeue returns the receive side of the queue. It is closed by Close
	// once drained.
	Dequeue() <-chan Ballot

	// Len returns the number of queued ballots.
	Len() int

	// Close stops accepting ballots. Queued ballots can still be drained.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	ballots  chan Ballot
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.ballots = make(chan Ballot, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Ballot) error {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("canceled")
		return err
	}

	select {
	case q.ballots <- b:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.ballots))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue() <-chan Ballot {
	return q.ballots
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len() int {
	n := len(q.ballots)
	metrics.UpdateQueueSize(n)
	return n
}

// Close implements Queue.Close. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.ballots)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
