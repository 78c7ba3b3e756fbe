// Package stats keeps the totals accumulated over all completed races.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
)

const DefaultKey = "car-racing-game-stats"

type (
	Aggregator struct {
		store storage.Store
		key   string
		mu    sync.Mutex
		log   *log.Logger
	}
	Option func(*Aggregator)
)

func WithKey(key string) Option {
	return func(a *Aggregator) {
		a.key = key
	}
}

func New(store storage.Store, opts ...Option) *Aggregator {
	ret := &Aggregator{
		store: store,
		key:   DefaultKey,
		log:   log.Default().Named("stats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load returns the stored totals. Absent, corrupt or unreadable stats yield
// the zero value.
func (a *Aggregator) Load(ctx context.Context) model.AggregateStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	ret, _ := a.load(ctx)
	return ret
}

// RecordCompletion adds a completed race to the totals and stores them.
// The updated totals are returned even if storing fails. If the stored
// totals cannot be read nothing is written, so earlier totals survive.
//
//nolint:whitespace // editor/linter issue
func (a *Aggregator) RecordCompletion(
	ctx context.Context,
	raceTimeMs int64,
	checkpoints int,
) (model.AggregateStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.load(ctx)
	if err != nil {
		return current, fmt.Errorf("read stats: %w", err)
	}
	current.GamesCompleted++
	current.TotalPlayTimeMs += raceTimeMs
	current.CheckpointsPassed += checkpoints
	current.BestTimeMs, _ = model.ImproveBest(current.BestTimeMs, raceTimeMs)

	data, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	if err := a.store.Put(ctx, a.key, data); err != nil {
		a.log.Warn("could not store stats", log.ErrorField(err))
		return current, fmt.Errorf("store stats: %w", err)
	}
	a.log.Debug("race recorded",
		log.Int("gamesCompleted", current.GamesCompleted),
		log.Int64("raceTimeMs", raceTimeMs))
	return current, nil
}

// Reset removes all stored totals
func (a *Aggregator) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.log.Warn("could not reset stats", log.ErrorField(err))
		return fmt.Errorf("reset stats: %w", err)
	}
	return nil
}

// load reports read errors other than a missing key. Corrupt content is
// replaced by defaults.
func (a *Aggregator) load(ctx context.Context) (model.AggregateStats, error) {
	var ret model.AggregateStats
	data, err := a.store.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ret, nil
		}
		a.log.Warn("could not read stats", log.ErrorField(err))
		return ret, err
	}
	if err := json.Unmarshal(data, &ret); err != nil {
		a.log.Warn("corrupt stats, using defaults", log.ErrorField(err))
		return model.AggregateStats{}, nil
	}
	return ret, nil
}
