// Package config carries the functional-options struct used to build an
// engine, the same shape as segmentmanager.DiskSegmentManagerOption.
package config

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultFlushThresholdMiB      = 1.0
	defaultFlushPollInterval      = 5 * time.Second
	defaultCompactionPollInterval = 1 * time.Second
	defaultCompactionSizeLimitMiB = 5.0
	defaultListenAddress          = "127.0.0.1:8000"
)

// Options holds every tunable named in the configuration surface. Zero
// value is never used directly; construct via New.
type Options struct {
	DataDir                string
	FlushThresholdMiB      float64
	FlushPollInterval      time.Duration
	CompactionPollInterval time.Duration
	CompactionSizeLimitMiB float64
	ListenAddress          string
	Logger                 *zap.SugaredLogger
}

// Option mutates an Options during construction.
type Option func(*Options)

// WithDataDir overrides where segments and the manifest live.
func WithDataDir(dir string) Option {
	return func(o *Options) { o.DataDir = dir }
}

// WithFlushThresholdMiB overrides the memtable footprint, in MiB, at
// which the FlushWatcher triggers a flush.
func WithFlushThresholdMiB(mib float64) Option {
	return func(o *Options) { o.FlushThresholdMiB = mib }
}

// WithFlushPollInterval overrides the FlushWatcher's sleep cadence.
func WithFlushPollInterval(d time.Duration) Option {
	return func(o *Options) { o.FlushPollInterval = d }
}

// WithCompactionPollInterval overrides the Compactor's sleep cadence.
func WithCompactionPollInterval(d time.Duration) Option {
	return func(o *Options) { o.CompactionPollInterval = d }
}

// WithCompactionSizeLimitMiB overrides the max SST size, in MiB, still
// eligible for compaction.
func WithCompactionSizeLimitMiB(mib float64) Option {
	return func(o *Options) { o.CompactionSizeLimitMiB = mib }
}

// WithListenAddress overrides the address the optional HTTP front end
// binds to.
func WithListenAddress(addr string) Option {
	return func(o *Options) { o.ListenAddress = addr }
}

// WithLogger overrides the structured logger used throughout the
// engine and its background workers. Passing nil is a no-op; New
// otherwise falls back to a no-op logger so callers never need a nil
// check.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Options) {
		if log != nil {
			o.Logger = log
		}
	}
}

// New builds Options from defaults plus the given overrides.
func New(opts ...Option) *Options {
	o := &Options{
		DataDir:                ".",
		FlushThresholdMiB:      defaultFlushThresholdMiB,
		FlushPollInterval:      defaultFlushPollInterval,
		CompactionPollInterval: defaultCompactionPollInterval,
		CompactionSizeLimitMiB: defaultCompactionSizeLimitMiB,
		ListenAddress:          defaultListenAddress,
		Logger:                 zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
