package storage

import (
	"context"
	"errors"
	"time"
)

// Store is a durable key/value store holding json documents.
// Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")

type (
	Config struct {
		Path   string        // directory (file) or database file (sqlite)
		URL    string        // connection url (postgres, nats)
		Bucket string        // nats bucket / sql table name
		TTL    time.Duration // server side expiry where supported

		// ExpiringKeys are the only keys TTL applies to
		ExpiringKeys []string
	}
	Option func(*Config)
)

func WithPath(p string) Option {
	return func(c *Config) {
		c.Path = p
	}
}

func WithURL(u string) Option {
	return func(c *Config) {
		c.URL = u
	}
}

func WithBucket(b string) Option {
	return func(c *Config) {
		c.Bucket = b
	}
}

func WithTTL(d time.Duration) Option {
	return func(c *Config) {
		c.TTL = d
	}
}

func WithExpiringKeys(keys ...string) Option {
	return func(c *Config) {
		c.ExpiringKeys = append(c.ExpiringKeys, keys...)
	}
}

// NewConfig applies opts on top of defaults
func NewConfig(defaults Config, opts ...Option) *Config {
	cfg := defaults
	for _, o := range opts {
		o(&cfg)
	}
	return &cfg
}
