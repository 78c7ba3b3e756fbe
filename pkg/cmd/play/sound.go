package play

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/mpapenbr/checkpoint-racer/log"
)

const sampleRate = beep.SampleRate(44100)

// chime plays short tones. Without an audio device all calls are no-ops.
type chime struct {
	mu      sync.Mutex
	enabled bool
	log     *log.Logger
}

func newChime(enable bool) *chime {
	ret := &chime{log: log.Default().Named("play.sound")}
	if !enable {
		return ret
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		ret.log.Warn("audio not available", log.ErrorField(err))
		return ret
	}
	ret.enabled = true
	return ret
}

// Checkpoint plays a single short tone
func (c *chime) Checkpoint() {
	c.play(tone(880, 80*time.Millisecond))
}

// Completed plays a rising sequence
func (c *chime) Completed() {
	c.play(beep.Seq(
		tone(660, 100*time.Millisecond),
		tone(880, 100*time.Millisecond),
		tone(1320, 200*time.Millisecond),
	))
}

func (c *chime) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		speaker.Close()
		c.enabled = false
	}
}

func (c *chime) play(s beep.Streamer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	speaker.Play(s)
}

func tone(freq int, d time.Duration) beep.Streamer {
	n := sampleRate.N(d)
	sine, err := generators.SineTone(sampleRate, float64(freq))
	if err != nil {
		return beep.Silence(n)
	}
	return beep.Take(n, sine)
}
