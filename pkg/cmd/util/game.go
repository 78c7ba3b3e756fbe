package util

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/config"
	"github.com/mpapenbr/checkpoint-racer/pkg/game"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

// AddGameFlags registers the flags of commands running a race
func AddGameFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.Physics, "physics",
		processing.StepperInline,
		"frame computation (inline, worker)")
	cmd.Flags().IntVar(&config.FPS, "fps", 60, "frames per second")
	cmd.Flags().StringVar(&config.AutosaveInterval, "autosave-interval",
		"5s",
		"interval between autosaves of a running race")
}

// GameSetup holds the resources backing a controller
type GameSetup struct {
	Config  *config.Config
	Store   storage.Store
	Stepper processing.Stepper
	Options []game.Option
}

// NewGameSetup resolves the configuration and opens storage and stepper.
// The returned options wire them into game.New.
func NewGameSetup(ctx context.Context, clk clock.Clock) (*GameSetup, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	stepper, err := processing.NewStepper(config.Physics)
	if err != nil {
		return nil, err
	}
	s, err := OpenStorage(ctx)
	if err != nil {
		stepper.Close()
		return nil, err
	}
	return &GameSetup{
		Config:  cfg,
		Store:   s,
		Stepper: stepper,
		Options: []game.Option{
			game.WithClock(clk),
			game.WithStepper(stepper),
			game.WithSessionStore(NewSessionStore(s, session.WithClock(clk))),
			game.WithStatsAggregator(NewStatsAggregator(s)),
			game.WithFrameInterval(cfg.FrameInterval),
			game.WithAutosaveInterval(cfg.AutosaveInterval),
		},
	}, nil
}

// Close releases stepper and storage. The controller has to be closed first.
func (g *GameSetup) Close() {
	g.Stepper.Close()
	if err := g.Store.Close(); err != nil {
		log.Warn("could not close storage", log.ErrorField(err))
	}
}
