package play

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/effect"
)

// track band and center line in world units
const (
	trackMargin = 50.0
	trackTop    = 200.0
	trackBottom = 400.0
	trackCenter = 300.0
	dashLength  = 20.0
)

var (
	grassColor      = tcell.NewRGBColor(34, 197, 94)
	roadColor       = tcell.NewRGBColor(55, 65, 81)
	pendingColor    = rgb{156, 163, 175}
	nextColor       = rgb{251, 191, 36}
	passedColor     = rgb{22, 163, 74}
	carStyle        = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite).Bold(true)
	hudStyle        = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	overlayStyle    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorYellow).Bold(true)
	carHeadingRunes = []rune("→↘↓↙←↖↑↗")
)

type rgb struct{ r, g, b float64 }

func (c rgb) scale(f float64) tcell.Color {
	return tcell.NewRGBColor(int32(c.r*f), int32(c.g*f), int32(c.b*f))
}

// towardsWhite blends c with white, alpha 1 yields white
func (c rgb) towardsWhite(alpha float64) tcell.Color {
	mix := func(v float64) int32 { return int32(v + (255-v)*alpha) }
	return tcell.NewRGBColor(mix(c.r), mix(c.g), mix(c.b))
}

// layout maps the world onto the terminal cells between the HUD row
// and the help row
type layout struct {
	width, height, top int
	bounds             model.Bounds
}

func newLayout(w, h int, b model.Bounds) layout {
	if b.Width <= 0 || b.Height <= 0 {
		b = model.DefaultBounds()
	}
	return layout{width: max(w, 1), height: max(h-2, 1), top: 1, bounds: b}
}

func (l layout) toCell(x, y float64) (col, row int) {
	col = int(x / l.bounds.Width * float64(l.width))
	row = int(y / l.bounds.Height * float64(l.height))
	return clampInt(col, 0, l.width-1), l.top + clampInt(row, 0, l.height-1)
}

// toWorld returns the world position of the cell center
func (l layout) toWorld(col, row int) (x, y float64) {
	x = (float64(col) + 0.5) / float64(l.width) * l.bounds.Width
	y = (float64(row-l.top) + 0.5) / float64(l.height) * l.bounds.Height
	return x, y
}

type view struct {
	screen  tcell.Screen
	hasSave bool
}

func (v *view) Draw(snap model.Snapshot, now time.Time) {
	v.screen.Clear()
	w, h := v.screen.Size()
	l := newLayout(w, h, snap.Bounds)
	v.drawTrack(l)
	v.drawCheckpoints(l, snap, now)
	v.drawCar(l, snap.Car)
	v.drawHUD(w, snap)
	v.drawOverlay(l, snap)
	v.drawText(0, h-1, w, hudStyle,
		"WASD/arrows drive  Esc pause  n new race  r reset  c continue  q quit")
	v.screen.Show()
}

func (v *view) drawTrack(l layout) {
	for row := l.top; row < l.top+l.height; row++ {
		for col := 0; col < l.width; col++ {
			x, y := l.toWorld(col, row)
			onRoad := x >= trackMargin && x <= l.bounds.Width-trackMargin &&
				y >= trackTop && y <= trackBottom
			if !onRoad {
				v.screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(grassColor))
				continue
			}
			ch := ' '
			_, centerRow := l.toCell(x, trackCenter)
			if row == centerRow && int(x/dashLength)%2 == 0 {
				ch = '-'
			}
			v.screen.SetContent(col, row, ch, nil,
				tcell.StyleDefault.Background(roadColor).Foreground(tcell.ColorWhite))
		}
	}
}

func (v *view) drawCheckpoints(l layout, snap model.Snapshot, now time.Time) {
	for i, cp := range snap.Checkpoints {
		var bg tcell.Color
		switch {
		case cp.Passed:
			bg = passedColor.towardsWhite(effect.GlowAlpha(cp, now))
		case i == snap.CurrentCheckpointIndex:
			bg = nextColor.scale(effect.Pulse(now))
		default:
			bg = pendingColor.scale(1)
		}
		style := tcell.StyleDefault.Background(bg).Foreground(tcell.ColorBlack)
		c0, r0 := l.toCell(cp.X, cp.Y)
		c1, r1 := l.toCell(cp.X+cp.Width, cp.Y+cp.Height)
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				v.screen.SetContent(col, row, ' ', nil, style)
			}
		}
		cx, cy := l.toCell(cp.Center())
		v.screen.SetContent(cx, cy, rune('0'+(i+1)%10), nil, style)
		if i == snap.CurrentCheckpointIndex && !cp.Passed && r0 > l.top {
			v.drawText(max(c0-1, 0), r0-1, l.width,
				tcell.StyleDefault.Background(roadColor).Foreground(tcell.ColorYellow), "NEXT")
		}
	}
}

func (v *view) drawCar(l layout, car model.Car) {
	col, row := l.toCell(car.X, car.Y)
	v.screen.SetContent(col, row, headingRune(car.Angle), nil, carStyle)
}

// headingRune returns the arrow closest to the heading. Angles grow
// clockwise on screen since y points down.
func headingRune(angle float64) rune {
	n := len(carHeadingRunes)
	idx := int(math.Round(angle/(2*math.Pi/float64(n)))) % n
	if idx < 0 {
		idx += n
	}
	return carHeadingRunes[idx]
}

func (v *view) drawHUD(w int, snap model.Snapshot) {
	best := "-"
	if snap.BestTimeMs != nil {
		best = model.FormatRaceTime(*snap.BestTimeMs)
	}
	v.drawText(0, 0, w, hudStyle, fmt.Sprintf(" Time %s | Checkpoint %d/%d | Best %s | %s",
		model.FormatRaceTime(snap.RaceTimeMs),
		snap.CurrentCheckpointIndex, snap.TotalCheckpoints,
		best, snap.State))
}

func (v *view) drawOverlay(l layout, snap model.Snapshot) {
	lines := overlayLines(snap, v.hasSave)
	row := l.top + (l.height-len(lines))/2
	for i, line := range lines {
		col := (l.width - len([]rune(line))) / 2
		v.drawText(max(col, 0), row+i, l.width, overlayStyle, line)
	}
}

func overlayLines(snap model.Snapshot, hasSave bool) []string {
	switch snap.State {
	case model.NotStarted:
		ret := []string{
			" CHECKPOINT RACER ",
			" Pass all checkpoints in order as fast as possible ",
			" Enter: start ",
		}
		if hasSave {
			ret = append(ret, " c: continue saved race ")
		}
		return ret
	case model.Paused:
		return []string{" PAUSED ", " Esc: resume  r: reset "}
	case model.Completed:
		ret := []string{
			" RACE COMPLETED! ",
			fmt.Sprintf(" Time: %s ", model.FormatRaceTime(snap.RaceTimeMs)),
		}
		if snap.NewRecord {
			ret = append(ret, " NEW RECORD! ")
		}
		return append(ret, " n: new race ")
	case model.Running:
	}
	return nil
}

func (v *view) drawText(col, row, maxCol int, style tcell.Style, text string) {
	for _, r := range text {
		if col >= maxCol {
			return
		}
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func clampInt(v, lower, upper int) int {
	return max(lower, min(upper, v))
}
