package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mpapenbr/checkpoint-racer/log"
)

// Stepper executes Step, either inline or on a background worker.
// Every strategy must produce the same output as Step.
type Stepper interface {
	Step(ctx context.Context, in StepInput) (StepOutput, error)
	Close()
}

const (
	StepperInline = "inline"
	StepperWorker = "worker"
)

var (
	ErrWorkerClosed       = errors.New("physics worker closed")
	ErrUnknownStepperKind = errors.New("unknown physics stepper kind")
)

var (
	_ Stepper = (*Inline)(nil)
	_ Stepper = (*Worker)(nil)
)

// NewStepper creates the stepper for the configured kind
func NewStepper(kind string) (Stepper, error) {
	switch kind {
	case "", StepperInline:
		return NewInline(), nil
	case StepperWorker:
		return NewWorker(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepperKind, kind)
	}
}

type Inline struct{}

func NewInline() *Inline {
	return &Inline{}
}

func (i *Inline) Step(ctx context.Context, in StepInput) (StepOutput, error) {
	if err := ctx.Err(); err != nil {
		return StepOutput{}, err
	}
	return Step(in), nil
}

func (i *Inline) Close() {}

type (
	// Worker runs Step on a dedicated goroutine. Requests are dispatched via
	// channels, each caller waits for its own reply.
	Worker struct {
		requests  chan workerRequest
		done      chan struct{}
		closeOnce sync.Once
		wg        sync.WaitGroup
		log       *log.Logger
		numSteps  int
	}
	workerRequest struct {
		in    StepInput
		reply chan StepOutput
	}
)

func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan workerRequest),
		done:     make(chan struct{}),
		log:      log.Default().Named("processing.worker"),
	}
	w.wg.Add(1)
	go w.serve()
	return w
}

func (w *Worker) serve() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			w.log.Debug("physics worker stopped", log.Int("steps", w.numSteps))
			return
		case req := <-w.requests:
			w.numSteps++
			req.reply <- Step(req.in)
		}
	}
}

func (w *Worker) Step(ctx context.Context, in StepInput) (StepOutput, error) {
	req := workerRequest{in: in, reply: make(chan StepOutput, 1)}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return StepOutput{}, ctx.Err()
	case <-w.done:
		return StepOutput{}, ErrWorkerClosed
	}
	select {
	case out := <-req.reply:
		return out, nil
	case <-ctx.Done():
		return StepOutput{}, ctx.Err()
	}
}

func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}
