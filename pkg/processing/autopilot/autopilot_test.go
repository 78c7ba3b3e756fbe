package autopilot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/checkpoint-racer/pkg/input"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

func TestDecide(t *testing.T) {
	target := model.Checkpoint{X: 490, Y: 250, Width: 20, Height: 100} // center (500,300)
	tests := []struct {
		name string
		car  model.Car
		want input.Controls
	}{
		{
			name: "straight ahead",
			car:  model.Car{X: 100, Y: 300, MaxSpeed: 5},
			want: input.Forward,
		},
		{
			name: "target above steers left",
			car:  model.Car{X: 100, Y: 500, MaxSpeed: 5},
			want: input.Forward | input.Left,
		},
		{
			name: "target below steers right",
			car:  model.Car{X: 100, Y: 100, MaxSpeed: 5},
			want: input.Forward | input.Right,
		},
		{
			name: "target inside turning circle drives straight",
			car:  model.Car{X: 500, Y: 220, MaxSpeed: 5},
			want: input.Forward,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.car, target))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 0.5, normalize(0.5+4*3.141592653589793), 1e-9)
	assert.InDelta(t, -0.5, normalize(-0.5-2*3.141592653589793), 1e-9)
}
