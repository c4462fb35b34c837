package clock_test

import (
	"testing"
	"time"

	"github.com/crewtools/crewclock/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadLocation(t *testing.T) {
	Convey("A valid IANA name resolves", t, func() {
		loc, ok := clock.LoadLocation("America/New_York")
		So(ok, ShouldBeTrue)
		So(loc.String(), ShouldEqual, "America/New_York")
	})

	Convey("An unknown name falls back to the host zone", t, func() {
		loc, ok := clock.LoadLocation("Nowhere/Invalid")
		So(ok, ShouldBeFalse)
		So(loc, ShouldEqual, time.Local)
	})

	Convey("An empty name falls back to the host zone", t, func() {
		loc, ok := clock.LoadLocation("")
		So(ok, ShouldBeFalse)
		So(loc, ShouldEqual, time.Local)
	})
}

func TestZoned(t *testing.T) {
	Convey("A zoned clock reports in its configured location", t, func() {
		loc := time.FixedZone("UTC+3", 3*3600)
		z := clock.NewZoned(loc)
		So(z.Now().Location(), ShouldEqual, loc)
		So(z.Location(), ShouldEqual, loc)
	})

	Convey("A nil location defaults to the host zone", t, func() {
		z := clock.NewZoned(nil)
		So(z.Now().Location(), ShouldEqual, time.Local)
	})
}

func TestFixed(t *testing.T) {
	Convey("A fixed clock always returns the same instant", t, func() {
		ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		f := clock.Fixed{T: ts}
		So(f.Now().Equal(ts), ShouldBeTrue)
		So(f.Now().Equal(ts), ShouldBeTrue)
	})
}
