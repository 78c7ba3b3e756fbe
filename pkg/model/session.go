package model

type (
	// SavedSession is the persisted subset of a RaceSession (session-save)
	SavedSession struct {
		RunID                  string       `json:"runId,omitempty"`
		Car                    Car          `json:"car"`
		Checkpoints            []Checkpoint `json:"checkpoints"`
		CurrentCheckpointIndex int          `json:"currentCheckpointIndex"`
		RaceTimeMs             int64        `json:"raceTimeMs"`
		SavedAtEpochMs         int64        `json:"savedAtEpochMs"`
		BestTimeMs             *int64       `json:"bestTimeMs,omitempty"`
	}

	// AggregateStats holds the cross session totals (aggregate-stats)
	AggregateStats struct {
		GamesCompleted    int    `json:"gamesCompleted"`
		BestTimeMs        *int64 `json:"bestTimeMs"`
		TotalPlayTimeMs   int64  `json:"totalPlayTimeMs"`
		CheckpointsPassed int    `json:"checkpointsPassed"`
	}
)
