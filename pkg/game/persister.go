package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/stats"
)

type opKind int

const (
	opSave opKind = iota
	opDelete
	opRecord
	opBarrier
)

func (k opKind) String() string {
	switch k {
	case opSave:
		return "save"
	case opDelete:
		return "delete"
	case opRecord:
		return "record"
	default:
		return "barrier"
	}
}

type (
	persistOp struct {
		kind        opKind
		generation  uint64
		race        *model.RaceSession
		raceTimeMs  int64
		checkpoints int
		done        chan struct{}
	}

	// persister executes storage side effects on a single goroutine in
	// submission order. Enqueue never blocks.
	persister struct {
		sessions   *session.Store
		stats      *stats.Aggregator
		generation *atomic.Uint64
		timeout    time.Duration
		metrics    *gameMetrics
		log        *log.Logger

		mu     sync.Mutex
		queue  []persistOp
		wake   chan struct{}
		done   chan struct{}
		closed bool
		wg     sync.WaitGroup
	}
)

//nolint:whitespace // editor/linter issue
func newPersister(
	sessions *session.Store,
	aggregator *stats.Aggregator,
	generation *atomic.Uint64,
	metrics *gameMetrics,
) *persister {
	p := &persister{
		sessions:   sessions,
		stats:      aggregator,
		generation: generation,
		timeout:    5 * time.Second,
		metrics:    metrics,
		log:        log.Default().Named("game.persister"),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	p.wg.Add(1)
	go p.serve()
	return p
}

func (p *persister) enqueue(op persistOp) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, op)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// save queues race for saving. The race has to be a private copy.
func (p *persister) save(generation uint64, race *model.RaceSession) {
	p.enqueue(persistOp{kind: opSave, generation: generation, race: race})
}

func (p *persister) deleteSession() {
	p.enqueue(persistOp{kind: opDelete})
}

func (p *persister) recordCompletion(raceTimeMs int64, checkpoints int) {
	p.enqueue(persistOp{kind: opRecord, raceTimeMs: raceTimeMs, checkpoints: checkpoints})
}

// Drain waits until all operations queued so far are processed
func (p *persister) Drain(ctx context.Context) error {
	done := make(chan struct{})
	if !p.enqueue(persistOp{kind: opBarrier, done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close processes the remaining queue and stops the worker
func (p *persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.done)
	p.wg.Wait()
}

func (p *persister) serve() {
	defer p.wg.Done()
	for {
		select {
		case <-p.wake:
			p.processQueue()
		case <-p.done:
			p.processQueue()
			return
		}
	}
}

func (p *persister) processQueue() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		op := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		p.process(op)
	}
}

func (p *persister) process(op persistOp) {
	if op.kind == opBarrier {
		close(op.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var err error
	switch op.kind {
	case opSave:
		if op.generation != p.generation.Load() {
			p.log.Debug("dropping save of a replaced race",
				log.String("runId", op.race.RunID))
			return
		}
		err = p.sessions.Save(ctx, op.race)
		if errors.Is(err, session.ErrNotEligible) {
			return
		}
		if err == nil {
			p.metrics.saves.Add(ctx, 1)
		}
	case opDelete:
		err = p.sessions.Delete(ctx)
	case opRecord:
		_, err = p.stats.RecordCompletion(ctx, op.raceTimeMs, op.checkpoints)
	case opBarrier:
	}
	if err != nil {
		p.metrics.persistFailures.Add(ctx, 1)
		p.log.Warn("persistence failed",
			log.String("op", op.kind.String()), log.ErrorField(err))
	}
}
