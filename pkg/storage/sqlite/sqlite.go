package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
)

var StorageTypeSqlite factory.StorageType = "sqlite"

const defaultTable = "kv"

var (
	ErrMissingPath = errors.New("sqlite storage requires a database path")
	validTable     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type sqliteStore struct {
	db    *sql.DB
	table string
	mu    sync.Mutex
	log   *log.Logger
}

var _ storage.Store = (*sqliteStore)(nil)

func New(ctx context.Context, opts []storage.Option) (storage.Store, error) {
	cfg := storage.NewConfig(storage.Config{Bucket: defaultTable}, opts...)
	if cfg.Path == "" {
		return nil, ErrMissingPath
	}
	if !validTable.MatchString(cfg.Bucket) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Bucket)
	}
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer anyway
	db.SetMaxOpenConns(1)

	s := &sqliteStore{
		db:    db,
		table: cfg.Bucket,
		log:   log.Default().Named("storage.sqlite"),
	}
	if _, err := db.ExecContext(ctx, s.buildCreateTable()); err != nil {
		db.Close()
		s.log.Error("error init database", log.ErrorField(err))
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) buildCreateTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`, s.table)
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			s.table),
		key, string(value), time.Now().UnixMilli())
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table), key)
	return err
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func init() {
	factory.Register(StorageTypeSqlite, New)
}
