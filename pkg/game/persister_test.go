package game

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/session"
	"github.com/mpapenbr/checkpoint-racer/pkg/stats"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
)

// records the order of operations, Put blocks until released
type recordingStore struct {
	storage.Store
	mu      sync.Mutex
	ops     []string
	gate    chan struct{}
	entered chan struct{}
}

func (r *recordingStore) Put(ctx context.Context, key string, value []byte) error {
	if r.gate != nil {
		r.entered <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	r.ops = append(r.ops, "put:"+key)
	r.mu.Unlock()
	return r.Store.Put(ctx, key, value)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.ops = append(r.ops, "delete:"+key)
	r.mu.Unlock()
	return r.Store.Delete(ctx, key)
}

func started(runID string) *model.RaceSession {
	rs := model.NewRaceSession(runID, nil)
	rs.Started = true
	return rs
}

func TestPersisterDropsSavesOfReplacedRace(t *testing.T) {
	store := &recordingStore{
		Store:   memory.NewStore(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	var generation atomic.Uint64
	generation.Store(1)
	p := newPersister(session.New(store), stats.New(store), &generation, newGameMetrics())
	defer p.Close()

	p.save(1, started("a"))
	<-store.entered // first save is being written
	p.save(1, started("b"))
	generation.Store(2)
	p.deleteSession()
	close(store.gate)
	require.NoError(t, p.Drain(context.Background()))

	assert.Equal(t, []string{
		"put:" + session.DefaultKey,
		"delete:" + session.DefaultKey,
	}, store.ops)
}

func TestPersisterKeepsOrder(t *testing.T) {
	store := &recordingStore{Store: memory.NewStore()}
	var generation atomic.Uint64
	p := newPersister(session.New(store), stats.New(store), &generation, newGameMetrics())

	p.save(0, started("a"))
	p.recordCompletion(1000, 6)
	p.deleteSession()
	p.Close()

	assert.Equal(t, []string{
		"put:" + session.DefaultKey,
		"put:" + stats.DefaultKey,
		"delete:" + session.DefaultKey,
	}, store.ops)
	assert.NoError(t, p.Drain(context.Background()), "drain after close returns at once")
}
