package processing

import (
	"time"

	"github.com/mpapenbr/checkpoint-racer/pkg/input"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/checkpoint"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/effect"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/kinematics"
)

type (
	// StepInput holds everything one frame computation needs.
	// It is passed by value and never shared with the caller.
	StepInput struct {
		Car         model.Car
		Controls    input.Controls
		Bounds      model.Bounds
		Checkpoints []model.Checkpoint
		Index       int
		Completed   bool
		Now         time.Time
	}
	StepOutput struct {
		Car         model.Car
		Checkpoints []model.Checkpoint
		Index       int
		Passed      bool
		Completed   bool
	}
)

// Step computes one frame: integration, checkpoint sequencing and effect decay.
// A completed race only gets its effects decayed.
func Step(in StepInput) StepOutput {
	if in.Completed {
		return StepOutput{
			Car:         in.Car,
			Checkpoints: effect.Decay(in.Checkpoints, in.Now),
			Index:       in.Index,
			Completed:   true,
		}
	}
	car := kinematics.Integrate(in.Car, in.Controls, in.Bounds)
	res := checkpoint.Advance(car, in.Checkpoints, in.Index, in.Now)
	return StepOutput{
		Car:         car,
		Checkpoints: effect.Decay(res.Checkpoints, in.Now),
		Index:       res.Index,
		Passed:      res.Passed,
		Completed:   res.Completed,
	}
}
