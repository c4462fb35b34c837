package mirror_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestSink(t *testing.T) *mirror.SQLiteSink {
	t.Helper()
	s, err := mirror.NewSQLiteSink(filepath.Join(t.TempDir(), "workbook.db"))
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()

	Convey("An empty path means the mirror is not configured", t, func() {
		_, err := mirror.NewSQLiteSink("")
		So(err, ShouldEqual, mirror.ErrNotConfigured)
	})

	Convey("Given a workbook sink", t, func() {
		s := newTestSink(t)

		Convey("Appended rows come back in append order", func() {
			r1 := model.Row{Date: "2026-03-02", Person: "ana", Action: "IN", TSIn: "2026-03-02 09:00:00", Source: "crew-clock"}
			r2 := model.Row{Date: "2026-03-02", Person: "ana", Action: "OUT", TSIn: "2026-03-02 09:00:00", TSOut: "2026-03-02 17:30:00", Hours: "8.5", Source: "crew-clock"}
			So(s.AppendRow(ctx, "2026-W10", r1), ShouldBeNil)
			So(s.AppendRow(ctx, "2026-W10", r2), ShouldBeNil)

			rows, err := s.BucketRows(ctx, "2026-W10")
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []model.Row{r1, r2})
		})

		Convey("Rows are isolated per bucket", func() {
			So(s.AppendRow(ctx, "2026-W10", model.Row{Person: "ana", Action: "OUT", Hours: "1"}), ShouldBeNil)
			rows, err := s.BucketRows(ctx, "2026-W11")
			So(err, ShouldBeNil)
			So(rows, ShouldBeNil)
		})

		Convey("WriteTotals clears and rewrites the bucket's totals page", func() {
			So(s.WriteTotals(ctx, "2026-W10", []report.Total{{Person: "zed", Hours: 1}}, "t0"), ShouldBeNil)
			So(s.WriteTotals(ctx, "2026-W10", []report.Total{
				{Person: "ana", Hours: 8.5},
				{Person: report.GrandTotalPerson, Hours: 8.5},
			}, "t1"), ShouldBeNil)

			got, err := s.Totals(ctx, "2026-W10")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			for _, row := range got {
				So(row.UpdatedAt, ShouldEqual, "t1")
			}
			// The stale "zed" row from the first write is gone.
			for _, row := range got {
				So(row.Person, ShouldNotEqual, "zed")
			}
		})

		Convey("WriteSummary replaces only the named bucket", func() {
			So(s.WriteSummary(ctx, "2026-W09", []report.Total{{Person: "ana", Hours: 3}}, "t0"), ShouldBeNil)
			So(s.WriteSummary(ctx, "2026-W10", []report.Total{{Person: "ana", Hours: 8.5}}, "t1"), ShouldBeNil)
			So(s.WriteSummary(ctx, "2026-W10", []report.Total{{Person: "ana", Hours: 9}}, "t2"), ShouldBeNil)

			w9, err := s.Summary(ctx, "2026-W09")
			So(err, ShouldBeNil)
			So(w9, ShouldHaveLength, 1)
			So(w9[0].Hours, ShouldEqual, 3)
			So(w9[0].UpdatedAt, ShouldEqual, "t0")

			w10, err := s.Summary(ctx, "2026-W10")
			So(err, ShouldBeNil)
			So(w10, ShouldHaveLength, 1)
			So(w10[0].Hours, ShouldEqual, 9)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Sink failures classify to stable labels", t, func() {
		So(mirror.Classify(nil), ShouldEqual, "none")
		So(mirror.Classify(mirror.ErrNotConfigured), ShouldEqual, "not_configured")
		So(mirror.Classify(mirror.ErrUpstreamAuth), ShouldEqual, "auth")
		So(mirror.Classify(mirror.ErrUpstreamTransient), ShouldEqual, "transient")
		So(mirror.Classify(mirror.ErrMalformedData), ShouldEqual, "malformed")
	})
}
