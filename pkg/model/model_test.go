package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImproveBest(t *testing.T) {
	tests := []struct {
		name      string
		best      *int64
		candidate int64
		want      int64
		record    bool
	}{
		{name: "no prior best", best: nil, candidate: 95000, want: 95000, record: true},
		{name: "slower run", best: lo.ToPtr(int64(90000)), candidate: 95000, want: 90000},
		{name: "faster run", best: lo.ToPtr(int64(90000)), candidate: 80000, want: 80000, record: true},
		{name: "equal run", best: lo.ToPtr(int64(90000)), candidate: 90000, want: 90000, record: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, record := ImproveBest(tt.best, tt.candidate)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.record, record)
		})
	}
}

func TestCloneCheckpointsIsDeep(t *testing.T) {
	src := DefaultCheckpoints()
	src[0].Passed = true
	src[0].JustPassed = true
	src[0].PassedTime = lo.ToPtr(int64(1000))

	cp := CloneCheckpoints(src)
	if diff := cmp.Diff(src, cp); diff != "" {
		t.Errorf("clone differs (-src +clone):\n%s", diff)
	}
	*cp[0].PassedTime = 2000
	cp[1].Passed = true
	assert.Equal(t, int64(1000), *src[0].PassedTime)
	assert.False(t, src[1].Passed)
	assert.Nil(t, CloneCheckpoints(nil))
}

func TestDefaultsAreFresh(t *testing.T) {
	a := DefaultCheckpoints()
	a[0].Passed = true
	b := DefaultCheckpoints()
	assert.False(t, b[0].Passed)
	assert.Len(t, b, 6)
	for i, cp := range b {
		assert.Equal(t, i+1, cp.ID)
	}
}

func TestFormatRaceTime(t *testing.T) {
	assert.Equal(t, "0:00", FormatRaceTime(0))
	assert.Equal(t, "0:59", FormatRaceTime(59999))
	assert.Equal(t, "1:05", FormatRaceTime(65000))
	assert.Equal(t, "0:00", FormatRaceTime(-5))
}

func TestPassedCount(t *testing.T) {
	cps := DefaultCheckpoints()
	cps[0].Passed = true
	cps[1].Passed = true
	assert.Equal(t, 2, PassedCount(cps))
}

func TestSavedSessionWireFormat(t *testing.T) {
	s := SavedSession{
		Car:                    DefaultCar(),
		Checkpoints:            DefaultCheckpoints()[:1],
		CurrentCheckpointIndex: 0,
		RaceTimeMs:             1200,
		SavedAtEpochMs:         1714564800000,
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"car", "checkpoints", "currentCheckpointIndex", "raceTimeMs", "savedAtEpochMs",
	} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "bestTimeMs")

	stats, err := json.Marshal(AggregateStats{})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"gamesCompleted":0,"bestTimeMs":null,"totalPlayTimeMs":0,"checkpointsPassed":0}`,
		string(stats))
}

func TestRaceSessionClone(t *testing.T) {
	s := NewRaceSession("run", lo.ToPtr(int64(42)))
	c := s.Clone()
	c.Checkpoints[0].Passed = true
	*c.BestTimeMs = 7
	assert.False(t, s.Checkpoints[0].Passed)
	assert.Equal(t, int64(42), *s.BestTimeMs)
	assert.Equal(t, 6, s.TotalCheckpoints())
}
