package autopilot

import (
	"math"

	"github.com/mpapenbr/checkpoint-racer/pkg/input"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/kinematics"
)

// heading errors below this are treated as straight ahead
const aimTolerance = 0.03

// Decide returns the controls steering the car towards the center of target.
// The turning radius of the car is constant (max speed / turn rate), so a
// target inside the turning circle is approached by driving straight first.
func Decide(car model.Car, target model.Checkpoint) input.Controls {
	tx, ty := target.Center()
	desired := math.Atan2(ty-car.Y, tx-car.X)
	diff := normalize(desired - car.Angle)

	if math.Abs(diff) < aimTolerance {
		return input.Forward
	}
	radius := car.MaxSpeed / kinematics.TurnRate
	// turning left decreases the angle, the circle center is perpendicular
	// to the heading on the turning side
	side := 1.0
	steer := input.Right
	if diff < 0 {
		side = -1.0
		steer = input.Left
	}
	cx := car.X + math.Cos(car.Angle+side*math.Pi/2)*radius
	cy := car.Y + math.Sin(car.Angle+side*math.Pi/2)*radius
	if math.Hypot(tx-cx, ty-cy) < radius {
		return input.Forward
	}
	return input.Forward | steer
}

func normalize(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
