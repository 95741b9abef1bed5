package telemetry_test

import (
	"testing"
	"time"

	"github.com/okian/showctl/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	Convey("Given a new event", t, func() {
		params := map[string]string{"cue": "12"}
		e := telemetry.New("cueFired", params)

		Convey("Then it is stamped and owns its parameters", func() {
			So(e.Valid(), ShouldBeTrue)
			So(time.Since(e.Time()), ShouldBeLessThan, 5*time.Second)
			params["cue"] = "13"
			So(e.Parameters["cue"], ShouldEqual, "12")
		})

		Convey("When cloned", func() {
			c := e.Clone()
			c.Parameters["cue"] = "99"

			Convey("Then the original is untouched", func() {
				So(e.Parameters["cue"], ShouldEqual, "12")
			})
		})

		Convey("When compared after dropping the wire id", func() {
			a := e.Clone()
			a.EventID = "abc"
			b := e.Clone()
			b.EventID = ""

			Convey("Then they are equal", func() {
				So(a.Equal(b), ShouldBeTrue)
			})
		})

		Convey("Then nil and empty maps compare equal", func() {
			a := telemetry.Event{Name: "x", Parameters: map[string]string{}}
			b := telemetry.Event{Name: "x"}
			So(a.Equal(b), ShouldBeTrue)
		})

		Convey("Then a blank name is invalid", func() {
			So(telemetry.Event{Name: "  "}.Valid(), ShouldBeFalse)
		})
	})
}
