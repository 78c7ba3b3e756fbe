package play

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/cmd/util"
	"github.com/mpapenbr/checkpoint-racer/pkg/config"
	"github.com/mpapenbr/checkpoint-racer/pkg/game"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/spectator"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/broadcast"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

var noSound bool

func NewPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "plays the race in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.Context())
		},
	}
	util.AddGameFlags(cmd)
	cmd.Flags().StringVar(&config.LogFile, "log-file", "",
		"log destination (default $HOME/.cpr/cpr.log)")
	cmd.Flags().StringVar(&config.SpectatorAddr, "spectator-addr", "",
		"serve snapshots to spectators on this address, e.g. localhost:8090")
	cmd.Flags().BoolVar(&noSound, "no-sound", false, "disables the chimes")
	return cmd
}

//nolint:funlen // setup and teardown
func play(ctx context.Context) error {
	logFile, err := util.OpenLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()
	util.SetupLogger(logFile)
	if telemetry := util.SetupTelemetry(); telemetry != nil {
		defer telemetry.Shutdown()
	}

	setup, err := util.NewGameSetup(ctx, clock.Real())
	if err != nil {
		return err
	}
	defer setup.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	snaps := make(chan model.Snapshot, 64)
	renderers := []game.Renderer{game.ChannelRenderer(snaps)}
	var spectatorFeed chan model.Snapshot
	if config.SpectatorAddr != "" {
		spectatorFeed = make(chan model.Snapshot, 64)
		renderers = append(renderers, game.ChannelRenderer(spectatorFeed))
	}
	ctrl := game.New(append(setup.Options,
		game.WithRenderer(game.MultiRenderer(renderers...)))...)
	defer ctrl.Close()

	if spectatorFeed != nil {
		bcst := broadcast.NewBroadcastServer("spectator", spectatorFeed,
			broadcast.WithBufferSize[model.Snapshot](8))
		defer bcst.Close()
		srv := spectator.New(ctrl, bcst)
		if err := srv.Start(config.SpectatorAddr); err != nil {
			return fmt.Errorf("spectator server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			//nolint:errcheck // best effort on exit
			srv.Shutdown(sctx)
		}()
	}

	sound := newChime(!noSound)
	defer sound.Close()

	p := &player{
		ctx:   ctx,
		ctrl:  ctrl,
		holds: newHoldTracker(ctrl.Keys()),
		view:  &view{screen: screen},
		sound: sound,
		log:   log.Default().Named("play"),
	}
	p.observe(ctrl.Snapshot())
	p.view.hasSave = ctrl.HasSavedSession(ctx)
	p.run(screen, snaps, setup.Config.FrameInterval)
	return nil
}

type player struct {
	ctx   context.Context
	ctrl  *game.Controller
	holds *holdTracker
	view  *view
	sound *chime
	log   *log.Logger
	last  model.Snapshot
}

func (p *player) run(screen tcell.Screen, snaps <-chan model.Snapshot, interval time.Duration) {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev := <-events:
			if !p.handleEvent(ev, time.Now()) {
				return
			}
		case snap := <-snaps:
			p.observe(snap)
		case <-ticker.C:
			now := time.Now()
			p.holds.Expire(now)
			p.view.Draw(p.last, now)
		}
	}
}

// handleEvent reports false when the player wants to quit
func (p *player) handleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if key := drivingKey(ev); key != "" {
			p.holds.Press(key, now)
			return true
		}
		switch commandKey(ev) {
		case cmdQuit:
			return false
		case cmdPause:
			p.ctrl.TogglePause()
		case cmdStart:
			p.ctrl.Start()
		case cmdNewRace:
			p.holds.Clear()
			p.ctrl.Reset()
			p.ctrl.Start()
			p.view.hasSave = false
		case cmdReset:
			p.holds.Clear()
			p.ctrl.Reset()
			p.view.hasSave = false
		case cmdContinue:
			p.resume()
		case cmdNone:
		}
	case *tcell.EventResize:
		p.view.screen.Sync()
	}
	return true
}

func (p *player) resume() {
	if p.last.State != model.NotStarted {
		return
	}
	ok, err := p.ctrl.ResumeFromSave(p.ctx)
	if err != nil {
		p.log.Warn("could not continue saved race", log.ErrorField(err))
		return
	}
	p.view.hasSave = false
	if !ok {
		p.log.Info("no saved race to continue")
	}
}

// observe keeps the latest snapshot and plays the chimes of the transitions
func (p *player) observe(snap model.Snapshot) {
	prev := p.last
	p.last = snap
	if prev.RunID != snap.RunID {
		return
	}
	switch {
	case snap.Completed && !prev.Completed:
		p.sound.Completed()
	case snap.CurrentCheckpointIndex > prev.CurrentCheckpointIndex:
		p.sound.Checkpoint()
	}
}
