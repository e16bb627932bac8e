// Package flush hosts the background worker that converts an
// over-threshold memtable into a new immutable segment.
package flush

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flashkv/flashkv/internal/engine"
)

const bytesPerMiB = 1024 * 1024

// Watcher periodically checks the engine's memtable footprint and
// triggers a flush once it exceeds the configured threshold, per
// spec.md §4.5.
type Watcher struct {
	eng       *engine.Engine
	interval  time.Duration
	threshold int64
	log       *zap.SugaredLogger
}

// New builds a Watcher over eng using eng's own configuration.
func New(eng *engine.Engine) *Watcher {
	opts := eng.Options()
	return &Watcher{
		eng:       eng,
		interval:  opts.FlushPollInterval,
		threshold: int64(opts.FlushThresholdMiB * bytesPerMiB),
		log:       eng.Logger(),
	}
}

// Run blocks, ticking at the configured interval until ctx is
// cancelled, adapted from the retention-sweep goroutine pattern: a
// ticker plus a ctx.Done() select, no separate stop channel needed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if flushed, err := w.eng.TryFlush(w.threshold); err != nil {
				w.log.Warnw("flush attempt failed, will retry next tick", "err", err)
			} else if flushed {
				w.log.Infow("flushed memtable to a new segment")
			}
		}
	}
}
