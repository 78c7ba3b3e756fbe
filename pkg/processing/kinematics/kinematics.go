package kinematics

import (
	"math"

	"github.com/mpapenbr/checkpoint-racer/pkg/input"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

const (
	Acceleration  = 0.3  // units per tick
	Drag          = 0.95 // speed factor per tick without throttle
	TurnRate      = 0.05 // radians per tick at max speed
	MinTurnSpeed  = 0.1  // below this |speed| the car cannot steer
	BoundsMargin  = 20.0 // distance kept from the world edges
	ReverseFactor = 0.5  // reverse speed cap relative to max speed
)

// Integrate advances the car by one tick.
// The step is tick based on purpose, it is not scaled by wall clock delta.
//
//nolint:whitespace // editor/linter issue
func Integrate(
	car model.Car,
	controls input.Controls,
	bounds model.Bounds,
) model.Car {
	switch {
	case controls.Has(input.Forward):
		car.Speed = math.Min(car.Speed+Acceleration, car.MaxSpeed)
	case controls.Has(input.Reverse):
		car.Speed = math.Max(car.Speed-Acceleration, -car.MaxSpeed*ReverseFactor)
	default:
		car.Speed *= Drag
	}

	if math.Abs(car.Speed) > MinTurnSpeed && car.MaxSpeed > 0 {
		turn := TurnRate * (car.Speed / car.MaxSpeed)
		if controls.Has(input.Left) {
			car.Angle -= turn
		}
		if controls.Has(input.Right) {
			car.Angle += turn
		}
	}

	car.X += math.Cos(car.Angle) * car.Speed
	car.Y += math.Sin(car.Angle) * car.Speed

	car.X = clamp(car.X, BoundsMargin, bounds.Width-BoundsMargin)
	car.Y = clamp(car.Y, BoundsMargin, bounds.Height-BoundsMargin)
	return car
}

func clamp(v, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, v))
}
