package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/adapters/repository"
	"github.com/crewtools/crewclock/internal/app"
	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/pairing"
	"github.com/crewtools/crewclock/internal/domain/report"
	"github.com/crewtools/crewclock/pkg/clock"
	"github.com/crewtools/crewclock/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// steppingClock returns a fresh instant on every call so consecutive
// punches never collide on the same second.
type steppingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func newTestService(t *testing.T, clk clock.Clock, sink mirror.Sink) *app.Service {
	t.Helper()
	_ = logger.Init()
	store, err := repository.New(filepath.Join(t.TempDir(), "clock.db"), time.UTC)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := app.New(
		app.WithStore(store),
		app.WithSink(sink),
		app.WithClock(clk),
		app.WithWorkerCount(1),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestRecordPunch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		clk := &steppingClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), step: time.Hour}
		sink := mirror.NewMemorySink()
		svc := newTestService(t, clk, sink)

		Convey("An IN punch appends without pairing", func() {
			res, err := svc.RecordPunch(ctx, "ana", "in", "")
			So(err, ShouldBeNil)
			So(res.Punch.Action, ShouldEqual, model.ActionIn)
			So(res.Punch.ID, ShouldBeGreaterThan, 0)
			So(res.Pair, ShouldBeNil)
		})

		Convey("An OUT closes the open IN and returns the pair summary", func() {
			_, err := svc.RecordPunch(ctx, "ana", "IN", "")
			So(err, ShouldBeNil)
			res, err := svc.RecordPunch(ctx, "ana", "OUT", "")
			So(err, ShouldBeNil)
			So(res.Pair, ShouldNotBeNil)
			So(res.Pair.Hours, ShouldEqual, 1.0)
			So(res.Pair.Out.Sub(res.Pair.In), ShouldEqual, time.Hour)
		})

		Convey("An OUT with no open IN appends but pairs nothing", func() {
			res, err := svc.RecordPunch(ctx, "ana", "out", "")
			So(err, ShouldBeNil)
			So(res.Pair, ShouldBeNil)

			recent, err := svc.RecentPunches(ctx, 10)
			So(err, ShouldBeNil)
			So(recent, ShouldHaveLength, 1)
		})

		Convey("Person input is trimmed and validated before any mutation", func() {
			_, err := svc.RecordPunch(ctx, "   ", "IN", "")
			So(err, ShouldEqual, app.ErrInvalidPerson)

			_, err = svc.RecordPunch(ctx, "ana", "LUNCH", "")
			So(err, ShouldEqual, model.ErrInvalidAction)

			recent, err := svc.RecentPunches(ctx, 10)
			So(err, ShouldBeNil)
			So(recent, ShouldBeEmpty)
		})

		Convey("A repeated request id is acknowledged as duplicate", func() {
			_, err := svc.RecordPunch(ctx, "ana", "IN", "req-1")
			So(err, ShouldBeNil)
			_, err = svc.RecordPunch(ctx, "ana", "IN", "req-1")
			So(err, ShouldEqual, app.ErrDuplicateRequest)

			recent, err := svc.RecentPunches(ctx, 10)
			So(err, ShouldBeNil)
			So(recent, ShouldHaveLength, 1)
		})
	})
}

func TestRecordPunchRacingOuts(t *testing.T) {
	ctx := context.Background()

	Convey("Two OUTs racing one open IN consume it exactly once", t, func() {
		clk := &steppingClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), step: time.Minute}
		svc := newTestService(t, clk, mirror.NewMemorySink())

		_, err := svc.RecordPunch(ctx, "ana", "IN", "")
		So(err, ShouldBeNil)

		type outcome struct {
			res model.PunchResult
			err error
		}
		results := make(chan outcome, 2)
		for i := 0; i < 2; i++ {
			go func() {
				res, err := svc.RecordPunch(ctx, "ana", "OUT", "")
				results <- outcome{res, err}
			}()
		}

		paired := 0
		for i := 0; i < 2; i++ {
			o := <-results
			So(o.err, ShouldBeNil)
			if o.res.Pair != nil {
				paired++
			}
		}
		So(paired, ShouldEqual, 1)
	})
}

func TestHoursAndOpenPunch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a day of punches", t, func() {
		clk := &steppingClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), step: 90 * time.Minute}
		svc := newTestService(t, clk, mirror.NewMemorySink())

		_, _ = svc.RecordPunch(ctx, "ana", "IN", "")  // 09:00
		_, _ = svc.RecordPunch(ctx, "ana", "OUT", "") // 10:30
		_, _ = svc.RecordPunch(ctx, "bo", "IN", "")   // 12:00

		Convey("Hours aggregates by day", func() {
			got, err := svc.Hours(ctx, pairing.Daily)
			So(err, ShouldBeNil)
			So(got["ana"]["2026-03-02"], ShouldEqual, 1.5)
			So(got, ShouldNotContainKey, "bo") // open IN contributes zero
		})

		Convey("Hours aggregates by ISO week", func() {
			got, err := svc.Hours(ctx, pairing.Weekly)
			So(err, ShouldBeNil)
			So(got["ana"]["2026-W10"], ShouldEqual, 1.5)
		})

		Convey("OpenPunch reports bo's open IN and ana's closed state", func() {
			_, ok, err := svc.OpenPunch(ctx, "ana")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			ts, ok, err := svc.OpenPunch(ctx, "bo")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(ts.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})
}

func TestMirrorPipeline(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a memory sink", t, func() {
		clk := &steppingClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), step: 8*time.Hour + 30*time.Minute}
		sink := mirror.NewMemorySink()
		svc := newTestService(t, clk, sink)

		Convey("An IN/OUT pair mirrors two rows and publishes rebuilt totals", func() {
			_, err := svc.RecordPunch(ctx, "ana", "IN", "")
			So(err, ShouldBeNil)
			_, err = svc.RecordPunch(ctx, "ana", "OUT", "")
			So(err, ShouldBeNil)

			// The pipeline is async; wait for the workers to drain.
			So(func() bool {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if sink.RowCount("2026-W10") == 2 && len(sink.Totals("2026-W10")) > 0 {
						return true
					}
					time.Sleep(5 * time.Millisecond)
				}
				return false
			}(), ShouldBeTrue)

			totals := sink.Totals("2026-W10")
			So(totals, ShouldHaveLength, 2)
			So(totals[0].Person, ShouldEqual, "ana")
			So(totals[0].Hours, ShouldEqual, 8.5)
			So(totals[1].Person, ShouldEqual, report.GrandTotalPerson)
			So(totals[1].Hours, ShouldEqual, 8.5)
		})

		Convey("A failing sink never fails the punch", func() {
			sink.FailWith = mirror.ErrUpstreamTransient
			res, err := svc.RecordPunch(ctx, "ana", "IN", "")
			So(err, ShouldBeNil)
			So(res.Punch.ID, ShouldBeGreaterThan, 0)
		})
	})
}

func TestRebuildBucket(t *testing.T) {
	ctx := context.Background()

	Convey("Given mirror rows across two buckets", t, func() {
		fixed := clock.Fixed{T: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)}
		sink := mirror.NewMemorySink()
		svc := newTestService(t, fixed, sink)

		So(sink.AppendRow(ctx, "2026-W10", model.Row{Person: "ana", Action: "OUT", Hours: "8.5"}), ShouldBeNil)
		So(sink.AppendRow(ctx, "2026-W10", model.Row{Person: "bo", Action: "OUT", Hours: "bogus"}), ShouldBeNil)
		So(sink.AppendRow(ctx, "2026-W09", model.Row{Person: "ana", Action: "OUT", Hours: "3"}), ShouldBeNil)

		Convey("Rebuild publishes totals for the named bucket only", func() {
			So(svc.RebuildBucket(ctx, "2026-W10"), ShouldBeNil)

			totals := sink.Totals("2026-W10")
			So(totals, ShouldResemble, []mirror.SummaryRow{
				{Bucket: "2026-W10", Person: "ana", Hours: 8.5, UpdatedAt: "2026-03-02 18:00:00"},
				{Bucket: "2026-W10", Person: report.GrandTotalPerson, Hours: 8.5, UpdatedAt: "2026-03-02 18:00:00"},
			})
			So(sink.Totals("2026-W09"), ShouldBeEmpty)
		})

		Convey("Rebuilding twice with no new rows yields identical output", func() {
			So(svc.RebuildBucket(ctx, "2026-W10"), ShouldBeNil)
			first := sink.Totals("2026-W10")
			So(svc.RebuildBucket(ctx, "2026-W10"), ShouldBeNil)
			So(sink.Totals("2026-W10"), ShouldResemble, first)
		})

		Convey("An empty bucket name rebuilds the current ISO week", func() {
			So(svc.RebuildBucket(ctx, ""), ShouldBeNil)
			// 2026-03-02 is in ISO week 10; the W10 totals page was rewritten.
			So(sink.Totals("2026-W10"), ShouldNotBeEmpty)
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("RecordPunch before Start is rejected", t, func() {
		svc := app.New()
		_, err := svc.RecordPunch(context.Background(), "ana", "IN", "")
		So(err, ShouldEqual, app.ErrNotStarted)
	})
}
