package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/storagetest"
)

func TestSqliteStore(t *testing.T) {
	s, err := New(context.Background(), []storage.Option{
		storage.WithPath(filepath.Join(t.TempDir(), "cpr.db")),
	})
	require.NoError(t, err)
	defer s.Close()
	storagetest.Run(t, s)
}

func TestSqliteStorePersists(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "cpr.db")
	s, err := New(ctx, []storage.Option{storage.WithPath(dbFile)})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte(`{"v":1}`)))
	require.NoError(t, s.Close())

	s, err = New(ctx, []storage.Option{storage.WithPath(dbFile)})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestSqliteStoreValidation(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingPath)
	_, err = New(context.Background(), []storage.Option{
		storage.WithPath(filepath.Join(t.TempDir(), "x.db")),
		storage.WithBucket("kv; drop table"),
	})
	assert.Error(t, err)
}
