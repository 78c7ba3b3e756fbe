package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/storagetest"
)

func TestInstrumentKeepsBehavior(t *testing.T) {
	storagetest.Run(t, storage.Instrument(memory.NewStore(), "memory"))
}

func TestInstrumentCountsOps(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	ctx := context.Background()
	s := storage.Instrument(memory.NewStore(), "memory")
	require.NoError(t, s.Put(ctx, "k", []byte(`{}`)))
	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), counts["cpr.storage.ops"])
	assert.Equal(t, int64(0), counts["cpr.storage.failures"])
}
