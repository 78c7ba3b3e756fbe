package effect

import (
	"math"
	"time"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

// GlowDuration is the time a passed checkpoint keeps its glow
const GlowDuration = 1000 * time.Millisecond

// Decay clears the transient just-passed flags once they are older than
// GlowDuration. Returns a copy; applying it twice yields the same result.
func Decay(checkpoints []model.Checkpoint, now time.Time) []model.Checkpoint {
	ret := model.CloneCheckpoints(checkpoints)
	nowMs := now.UnixMilli()
	for i := range ret {
		cp := &ret[i]
		if cp.JustPassed && cp.PassedTime != nil &&
			nowMs-*cp.PassedTime > GlowDuration.Milliseconds() {
			cp.JustPassed = false
			cp.PassedTime = nil
		}
	}
	return ret
}

// Active reports whether any checkpoint still carries a just-passed flag
func Active(checkpoints []model.Checkpoint) bool {
	for i := range checkpoints {
		if checkpoints[i].JustPassed {
			return true
		}
	}
	return false
}

// GlowAlpha returns the fade-out intensity in [0,1] of a just passed checkpoint
func GlowAlpha(cp model.Checkpoint, now time.Time) float64 {
	if !cp.JustPassed || cp.PassedTime == nil {
		return 0
	}
	age := now.UnixMilli() - *cp.PassedTime
	if age < 0 || age >= GlowDuration.Milliseconds() {
		return 0
	}
	return 1 - float64(age)/float64(GlowDuration.Milliseconds())
}

// Pulse returns the highlight intensity in [0.4,1] of the next checkpoint
func Pulse(now time.Time) float64 {
	return math.Sin(float64(now.UnixMilli())*0.005)*0.3 + 0.7
}
