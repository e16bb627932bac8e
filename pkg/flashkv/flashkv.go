// Package flashkv is the public embedding surface: a DB instance that
// owns the engine plus its two background workers, mirroring the
// shape of ignite's pkg/ignite.Instance.
package flashkv

import (
	"context"

	"github.com/flashkv/flashkv/internal/compaction"
	"github.com/flashkv/flashkv/internal/config"
	"github.com/flashkv/flashkv/internal/engine"
	"github.com/flashkv/flashkv/internal/flush"
)

// Option configures a DB at Open time.
type Option = config.Option

var (
	WithDataDir                = config.WithDataDir
	WithFlushThresholdMiB      = config.WithFlushThresholdMiB
	WithFlushPollInterval      = config.WithFlushPollInterval
	WithCompactionPollInterval = config.WithCompactionPollInterval
	WithCompactionSizeLimitMiB = config.WithCompactionSizeLimitMiB
	WithListenAddress          = config.WithListenAddress
	WithLogger                 = config.WithLogger
)

// DB is an embedded instance of the store: one engine, one
// FlushWatcher and one Compactor, each running for the lifetime of
// the DB.
type DB struct {
	eng    *engine.Engine
	cancel context.CancelFunc
}

// Open builds a DB from the given options and starts its background
// workers immediately.
func Open(opts ...Option) (*DB, error) {
	eng, err := engine.Open(config.New(opts...))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go flush.New(eng).Run(ctx)
	go compaction.New(eng).Run(ctx)

	return &DB{eng: eng, cancel: cancel}, nil
}

// Set inserts or overwrites key with value.
func (db *DB) Set(key, value []byte) error {
	return db.eng.Set(key, value)
}

// Get resolves key, returning kverrors.ErrNotFound if it is absent.
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.eng.Get(key)
}

// Delete removes key if present.
func (db *DB) Delete(key []byte) error {
	return db.eng.Delete(key)
}

// Close stops the background workers and releases the manifest file
// handle. It does not wait for an in-flight flush or compaction to
// finish; both are safe to abandon between their own suspension
// points per spec.md §5.
func (db *DB) Close() error {
	db.cancel()
	return db.eng.Close()
}
