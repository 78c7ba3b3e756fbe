package memory

import (
	"context"
	"sync"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
)

var StorageTypeMemory factory.StorageType = "memory"

type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Store = (*memoryStore)(nil)

func New(_ context.Context, _ []storage.Option) (storage.Store, error) {
	return NewStore(), nil
}

// NewStore creates an empty in-memory store, mainly used in tests
func NewStore() storage.Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *memoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func init() {
	factory.Register(StorageTypeMemory, New)
}
