package util

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/config"
	"github.com/mpapenbr/checkpoint-racer/pkg/game"
	"github.com/mpapenbr/checkpoint-racer/pkg/processing"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, log.WarnLevel, ParseLogLevel("warn", log.InfoLevel))
	assert.Equal(t, log.InfoLevel, ParseLogLevel("chatty", log.InfoLevel))
}

func TestSetupLoggerJSON(t *testing.T) {
	defer log.ResetDefault(log.Default())
	config.LogFormat = "json"
	config.LogLevel = "info"
	config.LogFilter = ""
	buf := &bytes.Buffer{}
	SetupLogger(buf)
	log.Default().Named("test").Debug("hidden")
	log.Default().Named("test").Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tests := []struct {
		kind string
		path string
	}{
		{"memory", ""},
		{"file", dir},
		{"sqlite", filepath.Join(dir, "cpr.db")},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			config.Storage = tt.kind
			config.StoragePath = tt.path
			s, err := OpenStorage(ctx)
			require.NoError(t, err)
			defer s.Close()
			require.NoError(t, s.Put(ctx, "k", []byte(`{"a":1}`)))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(got))
		})
	}
}

func TestOpenStorageUnknown(t *testing.T) {
	config.Storage = "floppy"
	_, err := OpenStorage(context.Background())
	assert.ErrorIs(t, err, factory.ErrStorageTypeNotSupported)
}

func TestNewGameSetup(t *testing.T) {
	config.Storage = "memory"
	config.Physics = "worker"
	config.FPS = 50
	config.AutosaveInterval = "2s"
	config.SessionMaxAge = "1h"
	config.WaitForServices = "1s"

	setup, err := NewGameSetup(context.Background(), clock.Real())
	require.NoError(t, err)
	defer setup.Close()
	assert.Equal(t, 20*time.Millisecond, setup.Config.FrameInterval)
	assert.Equal(t, 2*time.Second, setup.Config.AutosaveInterval)
	assert.IsType(t, &processing.Worker{}, setup.Stepper)

	ctrl := game.New(setup.Options...)
	defer ctrl.Close()
	assert.False(t, ctrl.HasSavedSession(context.Background()))
}

func TestNewGameSetupInvalid(t *testing.T) {
	config.Storage = "memory"
	config.Physics = "gpu"
	config.FPS = 60
	config.AutosaveInterval = "5s"
	config.SessionMaxAge = "24h"
	config.WaitForServices = "1s"
	_, err := NewGameSetup(context.Background(), clock.Real())
	assert.ErrorIs(t, err, processing.ErrUnknownStepperKind)

	config.Physics = "inline"
	config.FPS = 0
	_, err = NewGameSetup(context.Background(), clock.Real())
	assert.Error(t, err)
}
