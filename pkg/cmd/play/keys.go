package play

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mpapenbr/checkpoint-racer/pkg/input"
)

// Terminals report key presses only, held keys arrive as auto-repeat.
// A key counts as held until no repeat was seen within the hold window.
// The first window covers the initial repeat delay of the terminal.
const (
	initialHold = 550 * time.Millisecond
	repeatHold  = 120 * time.Millisecond
)

type holdTracker struct {
	keys      *input.KeySet
	deadlines map[string]time.Time
}

func newHoldTracker(keys *input.KeySet) *holdTracker {
	return &holdTracker{keys: keys, deadlines: map[string]time.Time{}}
}

func (h *holdTracker) Press(key string, now time.Time) {
	if d, ok := h.deadlines[key]; ok && !now.After(d) {
		h.deadlines[key] = now.Add(repeatHold)
	} else {
		h.deadlines[key] = now.Add(initialHold)
	}
	h.keys.Press(key)
}

// Expire releases all keys whose hold window has passed
func (h *holdTracker) Expire(now time.Time) {
	for key, d := range h.deadlines {
		if now.After(d) {
			delete(h.deadlines, key)
			h.keys.Release(key)
		}
	}
}

func (h *holdTracker) Clear() {
	h.deadlines = map[string]time.Time{}
	h.keys.Clear()
}

// drivingKey maps a terminal key to the name used by the input package.
// The empty string is returned for keys not used for driving.
func drivingKey(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyUp:
		return "arrowup"
	case tcell.KeyDown:
		return "arrowdown"
	case tcell.KeyLeft:
		return "arrowleft"
	case tcell.KeyRight:
		return "arrowright"
	case tcell.KeyRune:
		switch r := ev.Rune(); r {
		case 'w', 'a', 's', 'd', 'W', 'A', 'S', 'D':
			return string(r)
		}
	}
	return ""
}

type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdPause
	cmdStart
	cmdNewRace
	cmdReset
	cmdContinue
)

func commandKey(ev *tcell.EventKey) command {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return cmdQuit
	case tcell.KeyEscape:
		return cmdPause
	case tcell.KeyEnter:
		return cmdStart
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return cmdQuit
		case ' ':
			return cmdStart
		case 'n', 'N':
			return cmdNewRace
		case 'r', 'R':
			return cmdReset
		case 'c', 'C':
			return cmdContinue
		}
	}
	return cmdNone
}
