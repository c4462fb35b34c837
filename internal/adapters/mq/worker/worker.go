// Package worker drains the mirror queue. Sink failures are classified and
// logged, never propagated back to the punch path; the local store stays the
// source of truth regardless of what the mirror does.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/adapters/mq/queue"
	"github.com/crewtools/crewclock/pkg/logger"
	"github.com/crewtools/crewclock/pkg/metrics"
)

const (
	defaultWorkerCount = 2
	shutdownTimeout    = 10 * time.Second
)

// Rebuilder recomputes a bucket's published totals. Implemented by the
// service layer.
type Rebuilder interface {
	RebuildBucket(ctx context.Context, bucket string) error
}

// Pool runs N workers over the mirror queue.
type Pool struct {
	queue     queue.Queue
	sink      mirror.Sink
	rebuilder Rebuilder
	count     int

	wg     sync.WaitGroup
	cancel context.CancelFunc
	logger logger.Logger
}

// NewPool creates a worker pool. The pool does not start until Start.
func NewPool(q queue.Queue, sink mirror.Sink, rebuilder Rebuilder, opts ...Option) *Pool {
	p := &Pool{
		queue:     q,
		sink:      sink,
		rebuilder: rebuilder,
		count:     defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("mirror")
	}
	return p
}

// Start launches the workers. They run until the queue closes or ctx is
// canceled.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	metrics.UpdateWorkerCount(p.count)
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish, bounded by
// a shutdown timeout.
func (p *Pool) Stop() {
	_ = p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		if p.cancel != nil {
			p.cancel()
		}
		<-done
	}
	metrics.UpdateWorkerCount(0)
}

func (p *Pool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue.Dequeue():
			if !ok {
				return
			}
			p.process(ctx, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, job queue.Job) {
	var err error
	switch job.Kind {
	case queue.KindAppendRow:
		err = p.sink.AppendRow(ctx, job.Bucket, job.Row)
	case queue.KindRebuild:
		err = p.rebuilder.RebuildBucket(ctx, job.Bucket)
	default:
		p.logger.Warn(ctx, "unknown mirror job kind", logger.String("kind", string(job.Kind)))
		return
	}
	if err != nil {
		kind := mirror.Classify(err)
		metrics.RecordMirrorFailure(kind)
		p.logger.Warn(ctx, "mirror job failed",
			logger.String("job", string(job.Kind)),
			logger.String("bucket", job.Bucket),
			logger.String("kind", kind),
			logger.Error(err),
		)
	}
}
