package save

import (
	"bytes"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

func TestPrintSaved(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	saved := &model.SavedSession{
		RunID:                  "run-1",
		Car:                    model.DefaultCar(),
		Checkpoints:            model.DefaultCheckpoints(),
		CurrentCheckpointIndex: 2,
		RaceTimeMs:             65000,
		SavedAtEpochMs:         clock.EpochMillis(now.Add(-90 * time.Second)),
		BestTimeMs:             lo.ToPtr(int64(61000)),
	}
	buf := &bytes.Buffer{}
	PrintSaved(buf, saved, now)
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2/6")
	assert.Contains(t, out, "1:05")
	assert.Contains(t, out, "1:01")
	assert.Contains(t, out, "1m30s")
}
