package game

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mpapenbr/checkpoint-racer/log"
)

type gameMetrics struct {
	frames          metric.Int64Counter
	checkpoints     metric.Int64Counter
	completions     metric.Int64Counter
	saves           metric.Int64Counter
	persistFailures metric.Int64Counter
}

func newGameMetrics() *gameMetrics {
	meter := otel.GetMeterProvider().Meter("cpr.game")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			log.Error("failed to register metric",
				log.String("metric", name),
				log.ErrorField(err))
			c, _ = noop.Meter{}.Int64Counter(name)
		}
		return c
	}
	return &gameMetrics{
		frames:          counter("cpr.game.frames", "Number of computed frames"),
		checkpoints:     counter("cpr.game.checkpoints", "Number of passed checkpoints"),
		completions:     counter("cpr.game.completions", "Number of completed races"),
		saves:           counter("cpr.game.saves", "Number of stored sessions"),
		persistFailures: counter("cpr.game.persist.failures", "Number of failed persistence operations"),
	}
}
