package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/spf13/afero"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
)

var StorageTypeFile factory.StorageType = "file"

var (
	ErrMissingPath = errors.New("file storage requires a path")
	validKey       = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// fileStore keeps one json document per key in a directory
type fileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	log *log.Logger
}

var _ storage.Store = (*fileStore)(nil)

func New(_ context.Context, opts []storage.Option) (storage.Store, error) {
	cfg := storage.NewConfig(storage.Config{}, opts...)
	if cfg.Path == "" {
		return nil, ErrMissingPath
	}
	return NewWithFs(afero.NewOsFs(), cfg.Path)
}

// NewWithFs creates the store on an arbitrary afero filesystem
func NewWithFs(fs afero.Fs, dir string) (storage.Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &fileStore{
		fs:  fs,
		dir: dir,
		log: log.Default().Named("storage.file"),
	}, nil
}

func (s *fileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

// Put writes to a temp file first and renames it, a crash never leaves a
// half written document behind
func (s *fileStore) Put(ctx context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		//nolint:errcheck // best effort
		s.fs.Remove(tmp)
		return err
	}
	s.log.Debug("stored document", log.String("key", key), log.Int("size", len(value)))
	return nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Close() error {
	return nil
}

func init() {
	factory.Register(StorageTypeFile, New)
}
