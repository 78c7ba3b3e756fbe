package checkpoint

import (
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

// Result is the outcome of one sequencer pass.
// Checkpoints is always a copy, the input slice is never mutated.
type Result struct {
	Checkpoints []model.Checkpoint
	Index       int
	Passed      bool // the checkpoint at the previous index was passed in this pass
	Completed   bool
}

// Advance tests the car against the checkpoint at index only.
// At most one checkpoint can be passed per call.
//
//nolint:whitespace // editor/linter issue
func Advance(
	car model.Car,
	checkpoints []model.Checkpoint,
	index int,
	now time.Time,
) Result {
	ret := Result{
		Checkpoints: model.CloneCheckpoints(checkpoints),
		Index:       index,
		Completed:   index >= len(checkpoints),
	}
	if index < 0 || index >= len(checkpoints) {
		return ret
	}
	current := &ret.Checkpoints[index]
	if current.Passed || !Overlaps(car, *current) {
		return ret
	}

	current.Passed = true
	current.JustPassed = true
	current.PassedTime = lo.ToPtr(now.UnixMilli())
	ret.Index = index + 1
	ret.Passed = true
	ret.Completed = ret.Index >= len(ret.Checkpoints)
	return ret
}

// Overlaps reports whether the car bounding box strictly overlaps the checkpoint.
// Touching edges do not count.
func Overlaps(car model.Car, cp model.Checkpoint) bool {
	carLeft := car.X - model.CarHalfLength
	carRight := car.X + model.CarHalfLength
	carTop := car.Y - model.CarHalfWidth
	carBottom := car.Y + model.CarHalfWidth

	return carRight > cp.X &&
		carLeft < cp.X+cp.Width &&
		carBottom > cp.Y &&
		carTop < cp.Y+cp.Height
}
