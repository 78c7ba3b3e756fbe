package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
)

var StorageTypePostgres factory.StorageType = "postgres"

var ErrMissingURL = errors.New("postgres storage requires a database url")

// pool options applied when the store is created via the factory
var DefaultPoolOptions []PoolConfigOption

type postgresStore struct {
	pool     *pgxpool.Pool
	ownsPool bool
}

var _ storage.Store = (*postgresStore)(nil)

// New connects to the database and applies pending migrations
func New(ctx context.Context, opts []storage.Option) (storage.Store, error) {
	cfg := storage.NewConfig(storage.Config{}, opts...)
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if err := MigrateDB(cfg.URL); err != nil {
		return nil, err
	}
	pool, err := InitWithURL(ctx, cfg.URL, DefaultPoolOptions...)
	if err != nil {
		return nil, err
	}
	log.Default().Named("storage.postgres").Debug("connected")
	return &postgresStore{pool: pool, ownsPool: true}, nil
}

// NewWithPool uses an existing pool. The pool is not closed by Close.
func NewWithPool(pool *pgxpool.Pool) storage.Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		"SELECT value::text FROM kv_store WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *postgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	return err
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM kv_store WHERE key = $1", key)
	return err
}

func (s *postgresStore) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

func init() {
	factory.Register(StorageTypePostgres, New)
}
