package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/checkpoint-racer/pkg/cmd/util"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

var output string

func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "shows the statistics of all completed races",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(os.Stderr)
			s, err := util.OpenStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			agg := util.NewStatsAggregator(s).Load(cmd.Context())
			return Print(cmd.OutOrStdout(), output, agg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table",
		"output format (table, json, yaml)")
	cmd.AddCommand(newResetCmd())
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "removes all statistics including the best time",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(os.Stderr)
			s, err := util.OpenStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := util.NewStatsAggregator(s).Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "statistics removed")
			return nil
		},
	}
}

// Print writes the stats in the requested format
func Print(w io.Writer, format string, agg model.AggregateStats) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(toYaml(agg))
	case "table":
		printTable(w, agg)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

type yamlStats struct {
	GamesCompleted    int    `yaml:"gamesCompleted"`
	BestTimeMs        *int64 `yaml:"bestTimeMs"`
	TotalPlayTimeMs   int64  `yaml:"totalPlayTimeMs"`
	CheckpointsPassed int    `yaml:"checkpointsPassed"`
}

func toYaml(agg model.AggregateStats) yamlStats {
	return yamlStats(agg)
}

func printTable(w io.Writer, agg model.AggregateStats) {
	best := "-"
	if agg.BestTimeMs != nil {
		best = model.FormatRaceTime(*agg.BestTimeMs)
	}
	average := "-"
	if agg.GamesCompleted > 0 {
		average = model.FormatRaceTime(agg.TotalPlayTimeMs / int64(agg.GamesCompleted))
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Statistic", "Value"})
	t.AppendRows([]table.Row{
		{"Races completed", agg.GamesCompleted},
		{"Best time", best},
		{"Average time", average},
		{"Total play time", model.FormatRaceTime(agg.TotalPlayTimeMs)},
		{"Checkpoints passed", agg.CheckpointsPassed},
	})
	t.Render()
}
