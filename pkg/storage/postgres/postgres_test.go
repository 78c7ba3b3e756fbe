package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/storagetest"
	"github.com/mpapenbr/checkpoint-racer/testsupport/tcpostgres"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container based test in short mode")
	}
	dbURL := tcpostgres.SetupTestDB(t)
	s, err := New(context.Background(), []storage.Option{storage.WithURL(dbURL)})
	require.NoError(t, err)
	defer s.Close()
	storagetest.Run(t, s)
}

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx://u:p@host:5432/db", migrationURL("postgresql://u:p@host:5432/db"))
	assert.Equal(t, "pgx://u:p@host/db", migrationURL("postgres://u:p@host/db"))
	assert.Equal(t, "pgx://x", migrationURL("pgx://x"))
}

func TestMissingURL(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingURL)
}
