package factory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
)

type StorageType string

var ErrStorageTypeNotSupported = errors.New("storage type not supported")

type Creator func(ctx context.Context, opts []storage.Option) (storage.Store, error)

var registry = map[StorageType]Creator{}

// Register a new implementation
func Register(key StorageType, creator Creator) {
	registry[key] = creator
}

// New creates a store of the registered type
//
//nolint:whitespace //editor/linter issue
func New(
	ctx context.Context,
	key StorageType,
	opts ...storage.Option,
) (storage.Store, error) {
	creator, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageTypeNotSupported, key)
	}
	return creator(ctx, opts)
}

// Types returns the registered storage types, sorted
func Types() []string {
	ret := make([]string, 0, len(registry))
	for k := range registry {
		ret = append(ret, string(k))
	}
	sort.Strings(ret)
	return ret
}
