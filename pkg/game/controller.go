// Package game drives a race: it owns the race state machine, runs the frame
// loop and triggers persistence at the lifecycle edges of a race.
package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/input"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/effect"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/stats"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

const (
	DefaultFrameInterval    = time.Second / 60
	DefaultAutosaveInterval = 5 * time.Second
)

type (
	Option func(*Controller)

	// Controller is the single owner of the race state. All state changes
	// happen under mu, frames are serialized by frameMu.
	Controller struct {
		clock            clock.Clock
		sched            Scheduler
		stepper          processing.Stepper
		sessions         *session.Store
		stats            *stats.Aggregator
		renderer         Renderer
		bounds           model.Bounds
		autosaveInterval time.Duration
		frameInterval    time.Duration
		newRunID         func() string
		keys             *input.KeySet
		persist          *persister
		metrics          *gameMetrics
		log              *log.Logger
		ctx              context.Context
		cancel           context.CancelFunc

		frameMu sync.Mutex
		mu      sync.Mutex
		state   model.RaceState
		race    *model.RaceSession
		// startedAt is moved forward on resume from pause so that
		// now-startedAt always yields the race time while running
		startedAt   time.Time
		pausedAt    time.Time
		lastSave    time.Time
		epoch       uint64
		generation  atomic.Uint64
		frame       uint64
		cancelFrame Cancel
		bestTime    *int64
		newRecord   bool
		closed      bool
	}
)

func WithClock(c clock.Clock) Option {
	return func(g *Controller) {
		g.clock = c
	}
}

func WithScheduler(s Scheduler) Option {
	return func(g *Controller) {
		g.sched = s
	}
}

func WithStepper(s processing.Stepper) Option {
	return func(g *Controller) {
		g.stepper = s
	}
}

func WithSessionStore(s *session.Store) Option {
	return func(g *Controller) {
		g.sessions = s
	}
}

func WithStatsAggregator(a *stats.Aggregator) Option {
	return func(g *Controller) {
		g.stats = a
	}
}

func WithRenderer(r Renderer) Option {
	return func(g *Controller) {
		g.renderer = r
	}
}

func WithBounds(b model.Bounds) Option {
	return func(g *Controller) {
		g.bounds = b
	}
}

func WithAutosaveInterval(d time.Duration) Option {
	return func(g *Controller) {
		g.autosaveInterval = d
	}
}

func WithFrameInterval(d time.Duration) Option {
	return func(g *Controller) {
		g.frameInterval = d
	}
}

// WithRunIDs replaces the uuid based run id generator
func WithRunIDs(f func() string) Option {
	return func(g *Controller) {
		g.newRunID = f
	}
}

// New creates a controller in state NotStarted. The best time is taken
// from the stats aggregator.
func New(opts ...Option) *Controller {
	ret := &Controller{
		clock:            clock.Real(),
		sched:            RealScheduler(),
		renderer:         nopRenderer{},
		bounds:           model.DefaultBounds(),
		autosaveInterval: DefaultAutosaveInterval,
		frameInterval:    DefaultFrameInterval,
		newRunID:         uuid.NewString,
		keys:             input.NewKeySet(),
		metrics:          newGameMetrics(),
		log:              log.Default().Named("game.controller"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.stepper == nil {
		ret.stepper = processing.NewInline()
	}
	if ret.sessions == nil {
		ret.sessions = session.New(memory.NewStore(), session.WithClock(ret.clock))
	}
	if ret.stats == nil {
		ret.stats = stats.New(memory.NewStore())
	}
	ret.ctx, ret.cancel = context.WithCancel(context.Background())
	ret.persist = newPersister(ret.sessions, ret.stats, &ret.generation, ret.metrics)

	ret.bestTime = ret.stats.Load(ret.ctx).BestTimeMs
	ret.race = model.NewRaceSession("", ret.bestTime)
	ret.state = model.NotStarted
	return ret
}

func (c *Controller) Keys() *input.KeySet {
	return c.keys
}

func (c *Controller) State() model.RaceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current authoritative state
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.clock.Now())
}

// Start begins a new race. A completed race is reset first.
// Starting while a race is running or paused has no effect.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	switch c.state {
	case model.Running, model.Paused:
		c.mu.Unlock()
		return
	case model.Completed:
		c.resetLocked()
	case model.NotStarted:
	}
	now := c.clock.Now()
	c.stopFramesLocked()
	c.generation.Add(1)
	c.race = model.NewRaceSession(c.newRunID(), c.bestTime)
	c.race.Started = true
	c.startedAt = now
	c.lastSave = now
	c.newRecord = false
	c.state = model.Running
	c.log.Info("race started", log.String("runId", c.race.RunID))
	c.scheduleFrameLocked()
	snap := c.snapshotLocked(now)
	c.mu.Unlock()
	c.renderer.Render(snap)
}

// TogglePause switches between Running and Paused. It is ignored in
// any other state.
func (c *Controller) TogglePause() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	switch c.state {
	case model.Running:
		c.stopFramesLocked()
		c.race.RaceTimeMs = now.Sub(c.startedAt).Milliseconds()
		c.race.Paused = true
		c.pausedAt = now
		c.state = model.Paused
		c.log.Debug("race paused", log.Int64("raceTimeMs", c.race.RaceTimeMs))
	case model.Paused:
		c.startedAt = now.Add(-time.Duration(c.race.RaceTimeMs) * time.Millisecond)
		c.lastSave = c.lastSave.Add(now.Sub(c.pausedAt))
		c.race.Paused = false
		c.state = model.Running
		c.log.Debug("race resumed", log.Int64("raceTimeMs", c.race.RaceTimeMs))
		c.scheduleFrameLocked()
	case model.NotStarted, model.Completed:
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked(now)
	c.mu.Unlock()
	c.renderer.Render(snap)
}

// Reset discards the current race and the saved session. Only the best
// time survives. Frames and saves of the old race are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	snap := c.snapshotLocked(c.clock.Now())
	c.mu.Unlock()
	c.renderer.Render(snap)
}

// ResumeFromSave continues the saved race. It reports false if there is
// no usable save.
func (c *Controller) ResumeFromSave(ctx context.Context) (bool, error) {
	if err := c.persist.Drain(ctx); err != nil {
		return false, err
	}
	saved, err := c.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, nil
	}
	now := c.clock.Now()
	c.stopFramesLocked()
	c.generation.Add(1)
	plan := session.Resume(saved, c.bestTime, now)
	c.race = plan.Session
	if c.race.RunID == "" {
		c.race.RunID = c.newRunID()
	}
	c.bestTime = copyBest(plan.Session.BestTimeMs)
	c.startedAt = plan.StartedAt
	c.race.RaceTimeMs = now.Sub(c.startedAt).Milliseconds()
	c.lastSave = now
	c.newRecord = false
	c.state = model.Running
	c.log.Info("race resumed from save",
		log.String("runId", c.race.RunID),
		log.Int("index", c.race.CurrentCheckpointIndex),
		log.Int64("raceTimeMs", c.race.RaceTimeMs))
	c.scheduleFrameLocked()
	snap := c.snapshotLocked(now)
	c.mu.Unlock()
	c.renderer.Render(snap)
	return true, nil
}

// HasSavedSession reports whether a resumable session exists
func (c *Controller) HasSavedSession(ctx context.Context) bool {
	if err := c.persist.Drain(ctx); err != nil {
		return false
	}
	_, err := c.sessions.Load(ctx)
	return err == nil
}

// Drain waits until all queued persistence operations are done
func (c *Controller) Drain(ctx context.Context) error {
	return c.persist.Drain(ctx)
}

// Close stops the frame loop. An unfinished race is saved one last time.
// Queued persistence operations are completed before Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopFramesLocked()
	switch c.state {
	case model.Running:
		c.race.RaceTimeMs = c.clock.Now().Sub(c.startedAt).Milliseconds()
		c.persist.save(c.generation.Load(), c.race.Clone())
	case model.Paused:
		c.persist.save(c.generation.Load(), c.race.Clone())
	case model.NotStarted, model.Completed:
	}
	c.closed = true
	frames := c.frame
	c.mu.Unlock()

	c.cancel()
	c.frameMu.Lock()
	//nolint:staticcheck // waits for an in-flight frame
	c.frameMu.Unlock()
	c.persist.Close()
	c.log.Debug("controller closed", log.Uint64("frames", frames))
}

func (c *Controller) resetLocked() {
	c.stopFramesLocked()
	c.generation.Add(1)
	c.race = model.NewRaceSession("", c.bestTime)
	c.state = model.NotStarted
	c.newRecord = false
	c.keys.Clear()
	c.persist.deleteSession()
	c.log.Info("race reset")
}

// stopFramesLocked invalidates every frame scheduled or in flight
func (c *Controller) stopFramesLocked() {
	c.epoch++
	if c.cancelFrame != nil {
		c.cancelFrame()
		c.cancelFrame = nil
	}
}

func (c *Controller) scheduleFrameLocked() {
	epoch := c.epoch
	c.cancelFrame = c.sched.Schedule(c.frameInterval, func() {
		c.runFrame(epoch)
	})
}

func (c *Controller) runFrame(epoch uint64) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	c.mu.Lock()
	if c.closed || epoch != c.epoch || !c.framesWantedLocked() {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	in := processing.StepInput{
		Car:         c.race.Car,
		Controls:    c.keys.Controls(),
		Bounds:      c.bounds,
		Checkpoints: model.CloneCheckpoints(c.race.Checkpoints),
		Index:       c.race.CurrentCheckpointIndex,
		Completed:   c.race.Completed,
		Now:         now,
	}
	c.mu.Unlock()

	out, err := c.stepper.Step(c.ctx, in)

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		c.log.Debug("discarding stale frame result")
		return
	}
	if err != nil {
		c.log.Warn("frame computation failed", log.ErrorField(err))
		if !errors.Is(err, processing.ErrWorkerClosed) {
			c.scheduleFrameLocked()
		}
		c.mu.Unlock()
		return
	}
	c.applyLocked(out, now)
	snap := c.snapshotLocked(now)
	if c.framesWantedLocked() {
		c.scheduleFrameLocked()
	}
	c.mu.Unlock()
	c.renderer.Render(snap)
}

// framesWantedLocked reports whether the frame loop has to keep running.
// A completed race runs until its checkpoint glow has faded.
func (c *Controller) framesWantedLocked() bool {
	switch c.state {
	case model.Running:
		return true
	case model.Completed:
		return effect.Active(c.race.Checkpoints)
	case model.NotStarted, model.Paused:
	}
	return false
}

func (c *Controller) applyLocked(out processing.StepOutput, now time.Time) {
	c.frame++
	c.metrics.frames.Add(c.ctx, 1)
	if c.race.Completed {
		c.race.Checkpoints = out.Checkpoints
		return
	}
	c.race.Car = out.Car
	c.race.Checkpoints = out.Checkpoints
	c.race.CurrentCheckpointIndex = out.Index
	c.race.RaceTimeMs = now.Sub(c.startedAt).Milliseconds()

	if out.Passed {
		c.metrics.checkpoints.Add(c.ctx, 1)
		c.log.Debug("checkpoint passed",
			log.String("runId", c.race.RunID),
			log.Int("index", out.Index),
			log.Int64("raceTimeMs", c.race.RaceTimeMs))
	}
	switch {
	case out.Completed && !c.race.Completed:
		c.completeLocked()
	case out.Passed:
		c.saveLocked(now)
	case now.Sub(c.lastSave) >= c.autosaveInterval:
		c.saveLocked(now)
	}
}

func (c *Controller) completeLocked() {
	c.race.Completed = true
	c.state = model.Completed
	c.bestTime, c.newRecord = model.ImproveBest(c.bestTime, c.race.RaceTimeMs)
	c.race.BestTimeMs = c.bestTime
	c.metrics.completions.Add(c.ctx, 1)
	c.persist.recordCompletion(c.race.RaceTimeMs, c.race.TotalCheckpoints())
	c.persist.deleteSession()
	c.log.Info("race completed",
		log.String("runId", c.race.RunID),
		log.Int64("raceTimeMs", c.race.RaceTimeMs),
		log.Bool("newRecord", c.newRecord))
}

func (c *Controller) saveLocked(now time.Time) {
	c.lastSave = now
	c.persist.save(c.generation.Load(), c.race.Clone())
}

func (c *Controller) snapshotLocked(now time.Time) model.Snapshot {
	raceTime := c.race.RaceTimeMs
	if c.state == model.Running {
		raceTime = now.Sub(c.startedAt).Milliseconds()
	}
	return model.Snapshot{
		RunID:                  c.race.RunID,
		Frame:                  c.frame,
		State:                  c.state,
		Car:                    c.race.Car,
		Checkpoints:            model.CloneCheckpoints(c.race.Checkpoints),
		CurrentCheckpointIndex: c.race.CurrentCheckpointIndex,
		TotalCheckpoints:       c.race.TotalCheckpoints(),
		RaceTimeMs:             raceTime,
		Completed:              c.race.Completed,
		BestTimeMs:             copyBest(c.bestTime),
		NewRecord:              c.newRecord,
		Bounds:                 c.bounds,
		TakenAt:                now,
	}
}

func copyBest(v *int64) *int64 {
	if v == nil {
		return nil
	}
	ret := *v
	return &ret
}
