package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/adapters/mq/queue"
	"github.com/crewtools/crewclock/internal/adapters/mq/worker"
	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRebuilder struct {
	mu      sync.Mutex
	buckets []string
}

func (f *fakeRebuilder) RebuildBucket(_ context.Context, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets = append(f.buckets, bucket)
	return nil
}

func (f *fakeRebuilder) rebuilt() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.buckets))
	copy(out, f.buckets)
	return out
}

func TestPool(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a running pool over a memory sink", t, func() {
		q := queue.NewMemoryQueue(queue.WithCapacity(16))
		sink := mirror.NewMemorySink()
		rb := &fakeRebuilder{}
		pool := worker.NewPool(q, sink, rb, worker.WithWorkerCount(2))
		pool.Start(ctx)

		Convey("Append jobs reach the sink and rebuild jobs reach the rebuilder", func() {
			So(q.Enqueue(ctx, queue.Job{
				Kind:   queue.KindAppendRow,
				Bucket: "2026-W10",
				Row:    model.Row{Person: "ana", Action: "IN"},
			}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{Kind: queue.KindRebuild, Bucket: "2026-W10"}), ShouldBeTrue)

			pool.Stop() // drains remaining jobs

			So(sink.RowCount("2026-W10"), ShouldEqual, 1)
			So(rb.rebuilt(), ShouldContain, "2026-W10")
		})

		Convey("A failing sink never panics the pool", func() {
			sink.FailWith = mirror.ErrUpstreamTransient
			So(q.Enqueue(ctx, queue.Job{
				Kind:   queue.KindAppendRow,
				Bucket: "2026-W10",
				Row:    model.Row{Person: "ana"},
			}), ShouldBeTrue)

			So(pool.Stop, ShouldNotPanic)
			So(sink.RowCount("2026-W10"), ShouldEqual, 0)
		})
	})

	Convey("Stop drains jobs already queued before shutdown", t, func() {
		q := queue.NewMemoryQueue(queue.WithCapacity(64))
		sink := mirror.NewMemorySink()
		pool := worker.NewPool(q, sink, &fakeRebuilder{}, worker.WithWorkerCount(1))

		for i := 0; i < 10; i++ {
			So(q.Enqueue(ctx, queue.Job{
				Kind:   queue.KindAppendRow,
				Bucket: "2026-W10",
				Row:    model.Row{Person: "ana"},
			}), ShouldBeTrue)
		}

		pool.Start(ctx)
		// Give the worker a beat to pick up the backlog, then stop.
		time.Sleep(10 * time.Millisecond)
		pool.Stop()

		So(sink.RowCount("2026-W10"), ShouldEqual, 10)
	})
}
