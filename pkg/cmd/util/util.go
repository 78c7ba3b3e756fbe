// Package util contains the setup steps shared by the commands.
package util

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/config"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/stats"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/all"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/file"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/nats"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/postgres"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/sqlite"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the log flags and makes it
// the default logger
func SetupLogger(w io.Writer) *log.Logger {
	var logger *log.Logger
	opts := []log.Option{
		log.WithCaller(true),
		log.AddCallerSkip(1),
		log.WithFilter(config.LogFilter),
	}
	switch config.LogFormat {
	case "json":
		logger = log.New(w, ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(w, ParseLogLevel(config.LogLevel, log.DebugLevel), opts...)
	}
	log.ResetDefault(logger)
	return logger
}

// OpenLogFile opens config.LogFile for appending. The directory is created if needed.
func OpenLogFile() (*os.File, error) {
	path := config.LogFile
	if path == "" {
		path = filepath.Join(DataDir(), "cpr.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// DataDir is the default location for local storage ($HOME/.cpr)
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cpr"
	}
	return filepath.Join(home, ".cpr")
}

// SetupTelemetry enables telemetry if requested. The returned value may be nil.
func SetupTelemetry(opts ...config.TelemetryOption) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(context.Background(), opts...)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	postgres.DefaultPoolOptions = []postgres.PoolConfigOption{postgres.WithOtlpTracer()}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry
}

// OpenStorage creates the configured storage backend. Remote backends are
// awaited for config.WaitForServices.
func OpenStorage(ctx context.Context) (storage.Store, error) {
	kind := factory.StorageType(config.Storage)
	opts := []storage.Option{}
	switch kind {
	case file.StorageTypeFile:
		opts = append(opts, storage.WithPath(storagePath(DataDir())))
	case sqlite.StorageTypeSqlite:
		opts = append(opts, storage.WithPath(storagePath(filepath.Join(DataDir(), "cpr.db"))))
	case postgres.StorageTypePostgres:
		opts = append(opts, storage.WithURL(config.DB))
		waitForService(ctx, utils.ExtractFromDBURL(config.DB))
	case nats.StorageTypeNats:
		opts = append(opts,
			storage.WithURL(config.NatsURL),
			storage.WithExpiringKeys(session.DefaultKey))
		waitForService(ctx, utils.ExtractFromNatsURL(config.NatsURL))
	}
	s, err := factory.New(ctx, kind, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug("storage opened", log.String("type", config.Storage))
	return storage.Instrument(s, config.Storage), nil
}

// NewSessionStore applies the configured max age
func NewSessionStore(s storage.Store, extra ...session.Option) *session.Store {
	opts := []session.Option{}
	if d, err := time.ParseDuration(config.SessionMaxAge); err == nil && d > 0 {
		opts = append(opts, session.WithMaxAge(d))
	}
	return session.New(s, append(opts, extra...)...)
}

func NewStatsAggregator(s storage.Store) *stats.Aggregator {
	return stats.New(s)
}

func storagePath(defaultPath string) string {
	if config.StoragePath != "" {
		return config.StoragePath
	}
	return defaultPath
}

func waitForService(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if err := utils.WaitForTCP(ctx, addr, timeout); err != nil {
		log.Warn("required service not ready", log.ErrorField(err))
	}
}
