package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func setFlags(fps int, autosave, maxAge, wait string) {
	FPS = fps
	AutosaveInterval = autosave
	SessionMaxAge = maxAge
	WaitForServices = wait
}

func TestResolve(t *testing.T) {
	setFlags(50, "5s", "24h", "15s")
	cfg, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 15*time.Second, cfg.WaitForServices)
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name                   string
		fps                    int
		autosave, maxAge, wait string
	}{
		{"zero fps", 0, "5s", "24h", "1s"},
		{"bad autosave", 60, "soon", "24h", "1s"},
		{"negative max age", 60, "5s", "-1h", "1s"},
		{"zero wait", 60, "5s", "24h", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(tt.fps, tt.autosave, tt.maxAge, tt.wait)
			_, err := Resolve()
			assert.Error(t, err)
		})
	}
}

func TestSetupTelemetryStdout(t *testing.T) {
	TelemetryStdout = true
	defer func() { TelemetryStdout = false }()
	buf := &bytes.Buffer{}
	tel, err := SetupTelemetry(context.Background(), WithTelemetryWriter(buf))
	require.NoError(t, err)

	counter, err := otel.GetMeterProvider().Meter("test").Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)
	_, span := otel.GetTracerProvider().Tracer("test").Start(context.Background(), "test-span")
	span.End()
	tel.Shutdown()

	assert.Contains(t, buf.String(), "test.counter")
	assert.Contains(t, buf.String(), "test-span")
}
