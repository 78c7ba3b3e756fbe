package simulate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/cmd/util"
	"github.com/mpapenbr/checkpoint-racer/pkg/game"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing/autopilot"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

var (
	timeout    time.Duration
	abortAfter time.Duration
	resume     bool
)

var ErrTimeout = errors.New("race not completed within timeout")

func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "runs a race headless with an autopilot",
		Long: `Runs a race on a simulated clock. The autopilot steers towards the
next checkpoint. Completed races are recorded in the statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(cmd.Context(), cmd.OutOrStdout())
		},
	}
	util.AddGameFlags(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute,
		"give up if the race is not completed within this race time")
	cmd.Flags().DurationVar(&abortAfter, "abort-after", 0,
		"stop after this race time and leave the unfinished race saved")
	cmd.Flags().BoolVar(&resume, "continue", false,
		"continue the saved race if there is one")
	return cmd
}

func simulate(ctx context.Context, w io.Writer) error {
	util.SetupLogger(os.Stderr)
	if telemetry := util.SetupTelemetry(); telemetry != nil {
		defer telemetry.Shutdown()
	}
	clk := clock.NewMock(time.Now())
	setup, err := util.NewGameSetup(ctx, clk)
	if err != nil {
		return err
	}
	defer setup.Close()

	sched := game.NewManualScheduler()
	ctrl := game.New(append(setup.Options, game.WithScheduler(sched))...)
	res, err := Run(ctx, ctrl, clk, sched, Limits{Timeout: timeout, AbortAfter: abortAfter, Resume: resume})
	ctrl.Close()
	if err != nil {
		return err
	}
	PrintResult(w, res)
	if res.TimedOut {
		return ErrTimeout
	}
	return nil
}

type (
	Limits struct {
		Timeout    time.Duration
		AbortAfter time.Duration
		Resume     bool
	}
	Result struct {
		Snapshot model.Snapshot
		Resumed  bool
		Aborted  bool
		TimedOut bool
	}
)

// Run drives ctrl until the race is completed or a limit is reached.
// Every pending frame advances clk by its delay.
func Run(
	ctx context.Context,
	ctrl *game.Controller,
	clk *clock.Mock,
	sched *game.ManualScheduler,
	limits Limits,
) (Result, error) {
	ret := Result{}
	if limits.Resume {
		ok, err := ctrl.ResumeFromSave(ctx)
		if err != nil {
			return ret, err
		}
		ret.Resumed = ok
	}
	if !ret.Resumed {
		ctrl.Start()
	}
	logger := log.Default().Named("simulate")
	for {
		snap := ctrl.Snapshot()
		ret.Snapshot = snap
		raceTime := time.Duration(snap.RaceTimeMs) * time.Millisecond
		switch {
		case snap.State == model.Completed:
			return ret, ctrl.Drain(ctx)
		case limits.AbortAfter > 0 && raceTime >= limits.AbortAfter:
			ret.Aborted = true
			return ret, nil
		case limits.Timeout > 0 && raceTime >= limits.Timeout:
			ret.TimedOut = true
			return ret, nil
		}
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		target := snap.Checkpoints[snap.CurrentCheckpointIndex]
		ctrl.Keys().Set(autopilot.Decide(snap.Car, target).Keys()...)

		d, ok := sched.NextDelay()
		if !ok {
			logger.Warn("no frame scheduled", log.String("state", snap.State.String()))
			return ret, nil
		}
		clk.Advance(d)
		sched.RunNext()
	}
}

func PrintResult(w io.Writer, res Result) {
	snap := res.Snapshot
	if res.Resumed {
		fmt.Fprintln(w, "continued saved race")
	}
	switch {
	case snap.Completed:
		fmt.Fprintf(w, "race completed in %s\n", model.FormatRaceTime(snap.RaceTimeMs))
		if snap.NewRecord {
			fmt.Fprintln(w, "new record!")
		}
	case res.Aborted:
		fmt.Fprintf(w, "race aborted at %s, checkpoint %d/%d\n",
			model.FormatRaceTime(snap.RaceTimeMs),
			snap.CurrentCheckpointIndex, snap.TotalCheckpoints)
	case res.TimedOut:
		fmt.Fprintf(w, "race timed out at checkpoint %d/%d\n",
			snap.CurrentCheckpointIndex, snap.TotalCheckpoints)
	}
	if snap.BestTimeMs != nil {
		fmt.Fprintf(w, "best time: %s\n", model.FormatRaceTime(*snap.BestTimeMs))
	}
}
