package model

// Car describes the pose of the player car in world units.
// Angle is in radians, 0 points to positive x.
type Car struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Speed    float64 `json:"speed"`
	MaxSpeed float64 `json:"maxSpeed"`
}

const (
	DefaultCarX        = 100.0
	DefaultCarY        = 300.0
	DefaultCarMaxSpeed = 5.0

	// half extents of the car bounding box used for collision tests
	CarHalfLength = 15.0
	CarHalfWidth  = 8.0
)

func DefaultCar() Car {
	return Car{
		X:        DefaultCarX,
		Y:        DefaultCarY,
		Angle:    0,
		Speed:    0,
		MaxSpeed: DefaultCarMaxSpeed,
	}
}
