package config

import (
	"fmt"
	"time"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	Storage           string // storage backend (memory, file, sqlite, postgres, nats)
	StoragePath       string // directory (file) or database file (sqlite)
	DB                string // connection string for the postgres storage
	NatsURL           string // url of the nats server for the nats storage
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rule, e.g. "*:game.* storage.*"
	LogFile           string // log destination for commands owning the terminal
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	TelemetryStdout   bool   // print telemetry data on stdout instead of sending it
	Physics           string // frame computation strategy (inline, worker)
	FPS               int    // frames per second
	AutosaveInterval  string // interval between autosaves of a running race
	SessionMaxAge     string // saved races older than this are discarded
	SpectatorAddr     string // listen addr for the spectator server (empty: disabled)
)

// Config holds the derived values which are used by the application
type Config struct {
	FrameInterval    time.Duration
	AutosaveInterval time.Duration
	SessionMaxAge    time.Duration
	WaitForServices  time.Duration
}

// Resolve derives the durations from the flag values
func Resolve() (*Config, error) {
	ret := &Config{}
	if FPS <= 0 || FPS > 1000 {
		return nil, fmt.Errorf("fps out of range: %d", FPS)
	}
	ret.FrameInterval = time.Second / time.Duration(FPS)
	var err error
	if ret.AutosaveInterval, err = parsePositive("autosave-interval", AutosaveInterval); err != nil {
		return nil, err
	}
	if ret.SessionMaxAge, err = parsePositive("session-max-age", SessionMaxAge); err != nil {
		return nil, err
	}
	if ret.WaitForServices, err = parsePositive("wait-for-services", WaitForServices); err != nil {
		return nil, err
	}
	return ret, nil
}

func parsePositive(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}
