// Package all registers every storage backend with the factory.
package all

import (
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/file"
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/memory"
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/nats"
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/postgres"
	_ "github.com/mpapenbr/checkpoint-racer/pkg/storage/sqlite"
)
