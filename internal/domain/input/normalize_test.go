package input_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/showctl/internal/domain/input"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeAxis(t *testing.T) {
	Convey("Given the native int16 axis range", t, func() {
		Convey("Then the extremes map to exactly -1 and 1", func() {
			So(input.NormalizeAxis(input.AxisMin, input.AxisMin, input.AxisMax), ShouldEqual, -1.0)
			So(input.NormalizeAxis(input.AxisMax, input.AxisMin, input.AxisMax), ShouldEqual, 1.0)
		})

		Convey("Then the midpoint maps to roughly zero", func() {
			So(input.NormalizeAxis(0, input.AxisMin, input.AxisMax), ShouldAlmostEqual, 0.0, 1e-4)
		})

		Convey("Then out-of-range values are clamped", func() {
			So(input.NormalizeAxis(-40000, input.AxisMin, input.AxisMax), ShouldEqual, -1.0)
			So(input.NormalizeAxis(40000, input.AxisMin, input.AxisMax), ShouldEqual, 1.0)
		})

		Convey("Then an empty range yields zero", func() {
			So(input.NormalizeAxis(5, 10, 10), ShouldEqual, 0.0)
		})
	})

	Convey("Given a symmetric Linux joystick range", t, func() {
		So(input.NormalizeAxis(-32767, -32767, 32767), ShouldEqual, -1.0)
		So(input.NormalizeAxis(0, -32767, 32767), ShouldEqual, 0.0)
		So(input.NormalizeAxis(32767, -32767, 32767), ShouldEqual, 1.0)
	})
}

func TestApplyDeadZone(t *testing.T) {
	Convey("Given a dead zone of 0.2", t, func() {
		Convey("Then small values are zeroed", func() {
			So(input.ApplyDeadZone(0.1, 0.2), ShouldEqual, 0.0)
			So(input.ApplyDeadZone(-0.19, 0.2), ShouldEqual, 0.0)
		})

		Convey("Then extremes are preserved", func() {
			So(input.ApplyDeadZone(1, 0.2), ShouldEqual, 1.0)
			So(input.ApplyDeadZone(-1, 0.2), ShouldEqual, -1.0)
		})

		Convey("Then values outside are rescaled", func() {
			So(input.ApplyDeadZone(0.6, 0.2), ShouldAlmostEqual, 0.5, 1e-9)
		})
	})

	Convey("Given no dead zone", t, func() {
		So(input.ApplyDeadZone(0.01, 0), ShouldEqual, 0.01)
	})
}

func TestProperty_NormalizeAxisBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized values stay within [-1, 1]", prop.ForAll(
		func(raw int32) bool {
			v := input.NormalizeAxis(raw, input.AxisMin, input.AxisMax)
			return v >= -1 && v <= 1 && !math.IsNaN(v)
		},
		gen.Int32Range(-70000, 70000),
	))

	properties.Property("normalization is monotonic", prop.ForAll(
		func(a, b int16) bool {
			if a > b {
				a, b = b, a
			}
			return input.NormalizeAxis(int32(a), input.AxisMin, input.AxisMax) <=
				input.NormalizeAxis(int32(b), input.AxisMin, input.AxisMax)
		},
		gen.Int16(),
		gen.Int16(),
	))

	properties.Property("dead zone keeps sign and bounds", prop.ForAll(
		func(v, dz float64) bool {
			out := input.ApplyDeadZone(v, dz)
			if out == 0 {
				return true
			}
			return out >= -1 && out <= 1 && math.Signbit(out) == math.Signbit(v)
		},
		gen.Float64Range(-1, 1),
		gen.Float64Range(0, 0.9),
	))

	properties.TestingRun(t)
}
