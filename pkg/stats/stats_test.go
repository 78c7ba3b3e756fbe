package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
)

func TestLoadDefaults(t *testing.T) {
	got := New(memory.NewStore()).Load(context.Background())
	assert.DeepEqual(t, model.AggregateStats{}, got)
}

func TestRecordCompletion(t *testing.T) {
	ctx := context.Background()
	a := New(memory.NewStore())

	got, err := a.RecordCompletion(ctx, 90000, 6)
	assert.NilError(t, err)
	assert.DeepEqual(t, model.AggregateStats{
		GamesCompleted:    1,
		BestTimeMs:        lo.ToPtr(int64(90000)),
		TotalPlayTimeMs:   90000,
		CheckpointsPassed: 6,
	}, got)

	_, err = a.RecordCompletion(ctx, 95000, 6)
	assert.NilError(t, err)
	assert.Equal(t, int64(90000), *a.Load(ctx).BestTimeMs)

	got, err = a.RecordCompletion(ctx, 80000, 6)
	assert.NilError(t, err)
	assert.DeepEqual(t, model.AggregateStats{
		GamesCompleted:    3,
		BestTimeMs:        lo.ToPtr(int64(80000)),
		TotalPlayTimeMs:   265000,
		CheckpointsPassed: 18,
	}, got)
	assert.DeepEqual(t, got, a.Load(ctx))
}

func TestWireFormat(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	a := New(backend)
	data, err := backend.Get(ctx, DefaultKey)
	assert.Assert(t, errors.Is(err, storage.ErrNotFound))
	assert.Assert(t, is.Nil(data))

	_, err = a.RecordCompletion(ctx, 1000, 6)
	assert.NilError(t, err)
	data, err = backend.Get(ctx, DefaultKey)
	assert.NilError(t, err)
	assert.Equal(t, `{"gamesCompleted":1,"bestTimeMs":1000,"totalPlayTimeMs":1000,"checkpointsPassed":6}`,
		string(data))
}

func TestCorruptStatsYieldDefaults(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	assert.NilError(t, backend.Put(ctx, DefaultKey, []byte("{broken")))
	a := New(backend)
	assert.DeepEqual(t, model.AggregateStats{}, a.Load(ctx))

	got, err := a.RecordCompletion(ctx, 5000, 6)
	assert.NilError(t, err)
	assert.Equal(t, 1, got.GamesCompleted)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	a := New(memory.NewStore(), WithKey("stats"))
	_, err := a.RecordCompletion(ctx, 5000, 6)
	assert.NilError(t, err)
	assert.NilError(t, a.Reset(ctx))
	assert.DeepEqual(t, model.AggregateStats{}, a.Load(ctx))
	assert.NilError(t, a.Reset(ctx))
}

type failingStore struct {
	storage.Store
}

var errUnavailable = errors.New("unavailable")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errUnavailable }

func (failingStore) Put(context.Context, string, []byte) error { return errUnavailable }

func TestStorageFailure(t *testing.T) {
	ctx := context.Background()
	a := New(failingStore{})
	assert.DeepEqual(t, model.AggregateStats{}, a.Load(ctx))
	_, err := a.RecordCompletion(ctx, 5000, 6)
	assert.ErrorIs(t, err, errUnavailable)
}

// flakyReadStore fails the next n reads
type flakyReadStore struct {
	storage.Store
	failReads int
}

func (f *flakyReadStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failReads > 0 {
		f.failReads--
		return nil, errUnavailable
	}
	return f.Store.Get(ctx, key)
}

func TestReadFailureKeepsTotals(t *testing.T) {
	ctx := context.Background()
	backend := &flakyReadStore{Store: memory.NewStore()}
	a := New(backend)
	for i := 0; i < 5; i++ {
		_, err := a.RecordCompletion(ctx, 95000, 6)
		assert.NilError(t, err)
	}

	backend.failReads = 1
	_, err := a.RecordCompletion(ctx, 90000, 6)
	assert.ErrorIs(t, err, errUnavailable)

	want := model.AggregateStats{
		GamesCompleted:    5,
		BestTimeMs:        lo.ToPtr(int64(95000)),
		TotalPlayTimeMs:   475000,
		CheckpointsPassed: 30,
	}
	assert.DeepEqual(t, want, a.Load(ctx))

	got, err := a.RecordCompletion(ctx, 90000, 6)
	assert.NilError(t, err)
	assert.Equal(t, 6, got.GamesCompleted)
	assert.Equal(t, int64(90000), *got.BestTimeMs)
}
