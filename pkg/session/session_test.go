package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/clock"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func runningSession() *model.RaceSession {
	rs := model.NewRaceSession("run-1", lo.ToPtr(int64(90000)))
	rs.Started = true
	rs.Car = model.Car{X: 310, Y: 290, Angle: 0.4, Speed: 2.5, MaxSpeed: 5}
	rs.Checkpoints[0].Passed = true
	rs.Checkpoints[0].JustPassed = true
	rs.Checkpoints[0].PassedTime = lo.ToPtr(t0.UnixMilli() - 200)
	rs.CurrentCheckpointIndex = 1
	rs.RaceTimeMs = 12345
	return rs
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock(t0)
	s := New(memory.NewStore(), WithClock(clk))
	rs := runningSession()
	require.NoError(t, s.Save(ctx, rs))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	want := &model.SavedSession{
		RunID:                  rs.RunID,
		Car:                    rs.Car,
		Checkpoints:            rs.Checkpoints,
		CurrentCheckpointIndex: 1,
		RaceTimeMs:             12345,
		SavedAtEpochMs:         t0.UnixMilli(),
		BestTimeMs:             lo.ToPtr(int64(90000)),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveNotEligible(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := New(backend)

	notStarted := model.NewRaceSession("x", nil)
	assert.ErrorIs(t, s.Save(ctx, notStarted), ErrNotEligible)

	completed := runningSession()
	completed.Completed = true
	assert.ErrorIs(t, s.Save(ctx, completed), ErrNotEligible)

	_, err := backend.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadAbsent(t *testing.T) {
	_, err := New(memory.NewStore()).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoadStaleIsPurged(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock(t0)
	backend := memory.NewStore()
	s := New(backend, WithClock(clk))
	require.NoError(t, s.Save(ctx, runningSession()))

	clk.Advance(24*time.Hour + time.Millisecond)
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	// purge is permanent, even if the clock goes back
	clk.Set(t0)
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = backend.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadExactlyMaxAge(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock(t0)
	s := New(memory.NewStore(), WithClock(clk), WithMaxAge(time.Hour))
	require.NoError(t, s.Save(ctx, runningSession()))
	clk.Advance(time.Hour)
	_, err := s.Load(ctx)
	assert.NoError(t, err)
}

func TestLoadFutureTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		ahead  time.Duration
		wantOk bool
	}{
		{"within skew", 30 * time.Second, true},
		{"far ahead", time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := memory.NewStore()
			clk := clock.NewMock(t0.Add(tt.ahead))
			s := New(backend, WithClock(clk))
			require.NoError(t, s.Save(ctx, runningSession()))
			clk.Set(t0)

			saved, err := s.Load(ctx)
			_, getErr := backend.Get(ctx, DefaultKey)
			if tt.wantOk {
				require.NoError(t, err)
				plan := Resume(saved, nil, t0)
				assert.Equal(t, t0.Add(-time.Duration(saved.RaceTimeMs)*time.Millisecond),
					plan.StartedAt, "start never moves ahead of the saved race time")
				assert.NoError(t, getErr)
				return
			}
			assert.ErrorIs(t, err, ErrNoSession)
			assert.ErrorIs(t, getErr, storage.ErrNotFound, "future saves are purged")
		})
	}
}

func TestLoadCorruptIsPurged(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no json", `not json at all`},
		{"wrong types", `{"car":"fast"}`},
		{"no checkpoints", `{"car":{},"checkpoints":[],"savedAtEpochMs":1}`},
		{"index out of range", `{"checkpoints":[{"id":1}],"currentCheckpointIndex":3,"savedAtEpochMs":1}`},
		{"negative time", `{"checkpoints":[{"id":1}],"raceTimeMs":-5,"savedAtEpochMs":1}`},
		{"missing timestamp", `{"checkpoints":[{"id":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := memory.NewStore()
			require.NoError(t, backend.Put(ctx, DefaultKey, []byte(tt.data)))
			s := New(backend, WithClock(clock.NewMock(time.UnixMilli(2))))
			_, err := s.Load(ctx)
			assert.ErrorIs(t, err, ErrNoSession)
			_, err = backend.Get(ctx, DefaultKey)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

type failingStore struct {
	storage.Store
}

var errUnavailable = errors.New("unavailable")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errUnavailable }

func (failingStore) Put(context.Context, string, []byte) error { return errUnavailable }

func (failingStore) Delete(context.Context, string) error { return errUnavailable }

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	s := New(failingStore{})
	assert.ErrorIs(t, s.Save(ctx, runningSession()), errUnavailable)
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.Delete(ctx), errUnavailable)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewStore())
	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Save(ctx, runningSession()))
	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx))
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestWithKey(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := New(backend, WithKey("other"))
	require.NoError(t, s.Save(ctx, runningSession()))
	_, err := backend.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestResume(t *testing.T) {
	saved := &model.SavedSession{
		RunID:                  "run-1",
		Car:                    model.Car{X: 400, Y: 200, Speed: 1, MaxSpeed: 5},
		Checkpoints:            model.DefaultCheckpoints(),
		CurrentCheckpointIndex: 2,
		RaceTimeMs:             30000,
		SavedAtEpochMs:         t0.UnixMilli(),
	}
	now := t0.Add(10 * time.Minute)

	plan := Resume(saved, lo.ToPtr(int64(70000)), now)
	assert.Equal(t, now.Add(-30*time.Second).Add(-10*time.Minute), plan.StartedAt)
	assert.True(t, plan.Session.Started)
	assert.False(t, plan.Session.Completed)
	assert.Equal(t, 2, plan.Session.CurrentCheckpointIndex)
	assert.Equal(t, saved.Car, plan.Session.Car)
	assert.Equal(t, int64(70000), *plan.Session.BestTimeMs, "falls back to current best")

	saved.BestTimeMs = lo.ToPtr(int64(60000))
	plan = Resume(saved, lo.ToPtr(int64(70000)), now)
	assert.Equal(t, int64(60000), *plan.Session.BestTimeMs, "saved best wins")

	// the plan does not share checkpoint state with the save
	plan.Session.Checkpoints[0].Passed = true
	assert.False(t, saved.Checkpoints[0].Passed)
}
