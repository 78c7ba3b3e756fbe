package model

import (
	"github.com/samber/lo"
)

type (
	// Checkpoint is an axis aligned zone which has to be entered in sequence.
	// Passed is monotonic until the race is reset.
	// JustPassed and PassedTime (epoch ms) only drive the fade-out effect.
	Checkpoint struct {
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		ID         int     `json:"id"`
		Passed     bool    `json:"passed"`
		JustPassed bool    `json:"justPassed,omitempty"`
		PassedTime *int64  `json:"passedTime,omitempty"`
	}

	// Bounds describes the world extents
	Bounds struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
)

const (
	DefaultWorldWidth  = 1000.0
	DefaultWorldHeight = 600.0
)

func DefaultBounds() Bounds {
	return Bounds{Width: DefaultWorldWidth, Height: DefaultWorldHeight}
}

// DefaultCheckpoints returns a fresh copy of the route.
func DefaultCheckpoints() []Checkpoint {
	return []Checkpoint{
		{X: 300, Y: 250, Width: 20, Height: 100, ID: 1},
		{X: 600, Y: 150, Width: 20, Height: 100, ID: 2},
		{X: 900, Y: 300, Width: 20, Height: 100, ID: 3},
		{X: 700, Y: 450, Width: 20, Height: 100, ID: 4},
		{X: 400, Y: 500, Width: 20, Height: 100, ID: 5},
		{X: 50, Y: 400, Width: 20, Height: 100, ID: 6},
	}
}

// CloneCheckpoints creates a deep copy, PassedTime included
func CloneCheckpoints(src []Checkpoint) []Checkpoint {
	if src == nil {
		return nil
	}
	return lo.Map(src, func(cp Checkpoint, _ int) Checkpoint {
		if cp.PassedTime != nil {
			cp.PassedTime = lo.ToPtr(*cp.PassedTime)
		}
		return cp
	})
}

func PassedCount(checkpoints []Checkpoint) int {
	return lo.CountBy(checkpoints, func(cp Checkpoint) bool { return cp.Passed })
}

// Center returns the center point of the checkpoint rectangle
func (c Checkpoint) Center() (x, y float64) {
	return c.X + c.Width/2, c.Y + c.Height/2
}
