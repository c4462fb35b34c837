// Package queue carries mirror jobs from the punch path to the mirror
// workers. Mirroring is fire-and-forget: the punch request enqueues and
// moves on, so the queue must never block and reports backpressure by
// returning false.
package queue

import (
	"context"
	"sync"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/pkg/metrics"
)

const defaultCapacity = 4096

// Kind discriminates mirror job payloads.
type Kind string

const (
	// KindAppendRow mirrors one punch row into its bucket's row log.
	KindAppendRow Kind = "append_row"
	// KindRebuild recomputes a bucket's published totals.
	KindRebuild Kind = "rebuild"
)

// Job is one unit of mirror work.
type Job struct {
	Kind   Kind
	Bucket string
	Row    model.Row // set for KindAppendRow
}

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a job. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns the channel workers drain. Closed when the queue is.
	Dequeue() <-chan Job

	// Len returns the current number of queued jobs.
	Len() int

	// Close stops accepting jobs and closes the dequeue channel once
	// drained.
	Close() error
}

// MemoryQueue implements Queue over a buffered channel.
type MemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a bounded in-memory queue.
func NewMemoryQueue(opts ...Option) *MemoryQueue {
	q := &MemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordMirrorDrop()
		return false
	}
	select {
	case q.jobs <- j:
		metrics.RecordMirrorEnqueue()
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordMirrorDrop()
		return false
	default:
		metrics.RecordMirrorDrop()
		return false
	}
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue() <-chan Job { return q.jobs }

// Len implements Queue.
func (q *MemoryQueue) Len() int { return len(q.jobs) }

// Close implements Queue. Jobs already queued remain readable until the
// channel drains.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

func (q *MemoryQueue) observe() {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	metrics.UpdateQueueUtilization(float64(n) / float64(q.capacity))
}

var _ Queue = (*MemoryQueue)(nil)
