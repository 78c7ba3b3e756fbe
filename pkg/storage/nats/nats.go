package nats

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/factory"
)

type (
	// natsStore keeps entries in JetStream key value buckets.
	// Expiring keys live in a separate bucket with a max age, all other
	// keys are kept until deleted.
	natsStore struct {
		nc       *nats.Conn
		ownsNc   bool
		kv       jetstream.KeyValue
		expiring jetstream.KeyValue
		ttlKeys  map[string]bool
		log      *log.Logger
	}
)

var (
	StorageTypeNats factory.StorageType = "nats"
	DefaultBucket                       = "cpr_storage"
	DefaultTTL                          = 25 * time.Hour
)

var ErrMissingURL = errors.New("nats storage requires a server url")

var _ storage.Store = (*natsStore)(nil)

func New(ctx context.Context, opts []storage.Option) (storage.Store, error) {
	cfg := storage.NewConfig(storage.Config{
		Bucket: DefaultBucket,
		TTL:    DefaultTTL,
	}, opts...)
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	ret, err := NewWithConn(ctx, nc, cfg.Bucket, cfg.TTL, cfg.ExpiringKeys...)
	if err != nil {
		nc.Close()
		return nil, err
	}
	ret.ownsNc = true
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func NewWithConn(
	ctx context.Context,
	nc *nats.Conn,
	bucket string,
	ttl time.Duration,
	expiringKeys ...string,
) (*natsStore, error) {
	ret := &natsStore{
		nc:      nc,
		ttlKeys: map[string]bool{},
		log:     log.Default().Named("storage.nats"),
	}
	ret.log.Debug("Initializing NATS storage", log.String("bucket", bucket))
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	ret.kv, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 || len(expiringKeys) == 0 {
		return ret, nil
	}
	ret.expiring, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: ExpiringBucket(bucket),
		TTL:    ttl,
	})
	if err != nil {
		return nil, err
	}
	for _, k := range expiringKeys {
		ret.ttlKeys[k] = true
	}
	return ret, nil
}

// ExpiringBucket names the bucket holding the expiring keys of bucket
func ExpiringBucket(bucket string) string {
	return bucket + "_ttl"
}

func (s *natsStore) bucketFor(key string) jetstream.KeyValue {
	if s.expiring != nil && s.ttlKeys[key] {
		return s.expiring
	}
	return s.kv
}

func (s *natsStore) Get(ctx context.Context, key string) ([]byte, error) {
	kve, err := s.bucketFor(key).Get(ctx, s.composeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return kve.Value(), nil
}

func (s *natsStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.bucketFor(key).Put(ctx, s.composeKey(key), value)
	return err
}

func (s *natsStore) Delete(ctx context.Context, key string) error {
	err := s.bucketFor(key).Delete(ctx, s.composeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *natsStore) Close() error {
	if s.ownsNc {
		return s.nc.Drain()
	}
	return nil
}

func (s *natsStore) composeKey(key string) string {
	return "cpr." + key
}

func init() {
	factory.Register(StorageTypeNats, New)
}
