// Package session persists the resumable part of a race.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

const (
	DefaultKey    = "car-racing-game-save"
	DefaultMaxAge = 24 * time.Hour
	// MaxClockSkew is how far a save timestamp may lie in the future
	MaxClockSkew = time.Minute
)

var (
	// ErrNoSession is returned by Load when no usable save exists
	ErrNoSession = errors.New("no saved session")
	// ErrNotEligible is returned by Save for races not started or already completed
	ErrNotEligible = errors.New("session not eligible for saving")
)

type (
	Store struct {
		store  storage.Store
		key    string
		maxAge time.Duration
		clock  clock.Clock
		log    *log.Logger
	}
	Option func(*Store)

	// ResumePlan is the race reconstructed from a save
	ResumePlan struct {
		Session   *model.RaceSession
		StartedAt time.Time
	}
)

func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		s.maxAge = d
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

func New(store storage.Store, opts ...Option) *Store {
	ret := &Store{
		store:  store,
		key:    DefaultKey,
		maxAge: DefaultMaxAge,
		clock:  clock.Real(),
		log:    log.Default().Named("session.store"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Save writes the persisted subset of rs stamped with the current time.
// rs.RaceTimeMs has to be up to date.
func (s *Store) Save(ctx context.Context, rs *model.RaceSession) error {
	if !rs.Started || rs.Completed {
		return ErrNotEligible
	}
	saved := model.SavedSession{
		RunID:                  rs.RunID,
		Car:                    rs.Car,
		Checkpoints:            model.CloneCheckpoints(rs.Checkpoints),
		CurrentCheckpointIndex: rs.CurrentCheckpointIndex,
		RaceTimeMs:             rs.RaceTimeMs,
		SavedAtEpochMs:         clock.EpochMillis(s.clock.Now()),
		BestTimeMs:             rs.BestTimeMs,
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		s.log.Warn("could not save session",
			log.String("runId", rs.RunID), log.ErrorField(err))
		return fmt.Errorf("save session: %w", err)
	}
	s.log.Debug("session saved",
		log.String("runId", rs.RunID),
		log.Int("index", rs.CurrentCheckpointIndex),
		log.Int64("raceTimeMs", rs.RaceTimeMs))
	return nil
}

// Load returns the saved session. Absent, unreadable, corrupt and stale
// entries all yield ErrNoSession. Corrupt and stale entries are removed,
// so are entries stamped more than MaxClockSkew in the future.
func (s *Store) Load(ctx context.Context) (*model.SavedSession, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("could not read saved session", log.ErrorField(err))
		}
		return nil, ErrNoSession
	}
	var saved model.SavedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		s.log.Warn("corrupt saved session", log.ErrorField(err))
		s.purge(ctx)
		return nil, ErrNoSession
	}
	if err := validate(&saved); err != nil {
		s.log.Warn("invalid saved session", log.ErrorField(err))
		s.purge(ctx)
		return nil, ErrNoSession
	}
	age := s.clock.Now().Sub(clock.FromEpochMillis(saved.SavedAtEpochMs))
	if age < -MaxClockSkew {
		s.log.Warn("saved session is from the future", log.Duration("age", age))
		s.purge(ctx)
		return nil, ErrNoSession
	}
	if age > s.maxAge {
		s.log.Info("discarding stale saved session",
			log.Duration("age", age), log.Duration("maxAge", s.maxAge))
		s.purge(ctx)
		return nil, ErrNoSession
	}
	return &saved, nil
}

// Delete removes the saved session. Removing an absent session is no error.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.key); err != nil {
		s.log.Warn("could not delete saved session", log.ErrorField(err))
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) purge(ctx context.Context) {
	//nolint:errcheck // logged in Delete
	s.Delete(ctx)
}

// Resume rebuilds a running race from saved. The start time is moved back
// by the saved race time and by the gap since the save was taken. A save
// stamped slightly ahead of now counts as taken now.
// The best time of the save wins over currentBest.
func Resume(saved *model.SavedSession, currentBest *int64, now time.Time) ResumePlan {
	gap := max(now.Sub(clock.FromEpochMillis(saved.SavedAtEpochMs)), 0)
	best := saved.BestTimeMs
	if best == nil {
		best = currentBest
	}
	rs := model.NewRaceSession(saved.RunID, best)
	rs.Car = saved.Car
	rs.Checkpoints = model.CloneCheckpoints(saved.Checkpoints)
	rs.CurrentCheckpointIndex = saved.CurrentCheckpointIndex
	rs.RaceTimeMs = saved.RaceTimeMs
	rs.Started = true
	return ResumePlan{
		Session:   rs,
		StartedAt: now.Add(-time.Duration(saved.RaceTimeMs) * time.Millisecond).Add(-gap),
	}
}

func validate(saved *model.SavedSession) error {
	n := len(saved.Checkpoints)
	switch {
	case n == 0:
		return errors.New("no checkpoints")
	case saved.CurrentCheckpointIndex < 0 || saved.CurrentCheckpointIndex >= n:
		return fmt.Errorf("checkpoint index %d out of range", saved.CurrentCheckpointIndex)
	case saved.RaceTimeMs < 0:
		return fmt.Errorf("negative race time %d", saved.RaceTimeMs)
	case saved.SavedAtEpochMs <= 0:
		return errors.New("missing save timestamp")
	}
	return nil
}
