// Package storagetest contains the behavior every storage.Store has to provide.
//
//nolint:thelper // ok for test helpers
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
)

// Run executes the store conformance checks against s
func Run(t *testing.T, s storage.Store) {
	ctx := context.Background()
	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing-key")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "doc-a", []byte(`{"a":1}`)))
		got, err := s.Get(ctx, "doc-a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))
	})
	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "doc-b", []byte(`{"b":1}`)))
		require.NoError(t, s.Put(ctx, "doc-b", []byte(`{"b":2}`)))
		got, err := s.Get(ctx, "doc-b")
		require.NoError(t, err)
		assert.JSONEq(t, `{"b":2}`, string(got))
	})
	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "doc-c", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "doc-c"))
		require.NoError(t, s.Delete(ctx, "doc-c"))
		_, err := s.Get(ctx, "doc-c")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "car-racing-game-save", []byte(`{"x":1}`)))
		require.NoError(t, s.Put(ctx, "car-racing-game-stats", []byte(`{"y":2}`)))
		require.NoError(t, s.Delete(ctx, "car-racing-game-save"))
		got, err := s.Get(ctx, "car-racing-game-stats")
		require.NoError(t, err)
		assert.JSONEq(t, `{"y":2}`, string(got))
	})
}
