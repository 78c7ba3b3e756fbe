package save

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/checkpoint-racer/pkg/cmd/util"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

func NewSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "commands to inspect the saved race",
	}
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "shows the saved race if there is a resumable one",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(os.Stderr)
			s, err := util.OpenStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			saved, err := util.NewSessionStore(s).Load(cmd.Context())
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved race")
				return nil
			}
			if err != nil {
				return err
			}
			PrintSaved(cmd.OutOrStdout(), saved, time.Now())
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "removes the saved race",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(os.Stderr)
			s, err := util.OpenStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := util.NewSessionStore(s).Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved race removed")
			return nil
		},
	}
}

// PrintSaved renders the saved race as table
func PrintSaved(w io.Writer, saved *model.SavedSession, now time.Time) {
	best := "-"
	if saved.BestTimeMs != nil {
		best = model.FormatRaceTime(*saved.BestTimeMs)
	}
	savedAt := clock.FromEpochMillis(saved.SavedAtEpochMs)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Saved race", ""})
	t.AppendRows([]table.Row{
		{"Run", saved.RunID},
		{"Checkpoint", fmt.Sprintf("%d/%d",
			saved.CurrentCheckpointIndex, len(saved.Checkpoints))},
		{"Race time", model.FormatRaceTime(saved.RaceTimeMs)},
		{"Best time", best},
		{"Saved at", savedAt.Local().Format(time.DateTime)},
		{"Age", now.Sub(savedAt).Round(time.Second).String()},
	})
	t.Render()
}
