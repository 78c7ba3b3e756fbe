package model

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

type RaceState int

const (
	NotStarted RaceState = iota
	Running
	Paused
	Completed
)

func (s RaceState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s RaceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type (
	// RaceSession is the in-memory state of the active race.
	// CurrentCheckpointIndex is a cursor in [0, len(Checkpoints)],
	// len(Checkpoints) signals completion.
	RaceSession struct {
		RunID                  string       `json:"runId"`
		Car                    Car          `json:"car"`
		Checkpoints            []Checkpoint `json:"checkpoints"`
		CurrentCheckpointIndex int          `json:"currentCheckpointIndex"`
		Started                bool         `json:"started"`
		Paused                 bool         `json:"paused"`
		RaceTimeMs             int64        `json:"raceTimeMs"`
		Completed              bool         `json:"completed"`
		BestTimeMs             *int64       `json:"bestTimeMs,omitempty"`
	}

	// Snapshot is the authoritative per-frame state handed to presentations
	Snapshot struct {
		RunID                  string       `json:"runId"`
		Frame                  uint64       `json:"frame"`
		State                  RaceState    `json:"state"`
		Car                    Car          `json:"car"`
		Checkpoints            []Checkpoint `json:"checkpoints"`
		CurrentCheckpointIndex int          `json:"currentCheckpointIndex"`
		TotalCheckpoints       int          `json:"totalCheckpoints"`
		RaceTimeMs             int64        `json:"raceTimeMs"`
		Completed              bool         `json:"completed"`
		BestTimeMs             *int64       `json:"bestTimeMs,omitempty"`
		NewRecord              bool         `json:"newRecord"`
		Bounds                 Bounds       `json:"bounds"`
		TakenAt                time.Time    `json:"takenAt"`
	}
)

// NewRaceSession creates a default race carrying forward only the best time
func NewRaceSession(runID string, bestTimeMs *int64) *RaceSession {
	return &RaceSession{
		RunID:       runID,
		Car:         DefaultCar(),
		Checkpoints: DefaultCheckpoints(),
		BestTimeMs:  cloneInt64(bestTimeMs),
	}
}

func (s *RaceSession) TotalCheckpoints() int {
	return len(s.Checkpoints)
}

func (s *RaceSession) Clone() *RaceSession {
	ret := *s
	ret.Checkpoints = CloneCheckpoints(s.Checkpoints)
	ret.BestTimeMs = cloneInt64(s.BestTimeMs)
	return &ret
}

// ImproveBest returns the new best time and whether candidate is a new record.
// A candidate replaces the best time only if strictly lower. Matching the
// best time counts as a record.
func ImproveBest(best *int64, candidate int64) (*int64, bool) {
	if best == nil || candidate < *best {
		return lo.ToPtr(candidate), true
	}
	return cloneInt64(best), candidate == *best
}

// FormatRaceTime formats milliseconds as m:ss
func FormatRaceTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return lo.ToPtr(*v)
}
