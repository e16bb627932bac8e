// Package compaction hosts the background worker that merges the two
// oldest small segments into one, per spec.md §4.6. It needs none of
// the engine's memtable lock: closed segments are immutable, and the
// Compactor serializes itself by running as a single goroutine.
package compaction

import (
	"context"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flashkv/flashkv/internal/engine"
	"github.com/flashkv/flashkv/internal/manifest"
	"github.com/flashkv/flashkv/memtable"
	"github.com/flashkv/flashkv/segment"
)

const bytesPerMiB = 1024 * 1024

// Compactor periodically sweeps the segment directory and merges the
// two oldest segments under the size limit into a newer, larger one.
type Compactor struct {
	dir          *segment.Directory
	manifest     *manifest.Writer
	interval     time.Duration
	sizeLimitMiB float64
	log          *zap.SugaredLogger
}

// New builds a Compactor over eng using eng's own configuration.
func New(eng *engine.Engine) *Compactor {
	opts := eng.Options()
	return &Compactor{
		dir:          eng.Directory(),
		manifest:     eng.Manifest(),
		interval:     opts.CompactionPollInterval,
		sizeLimitMiB: opts.CompactionSizeLimitMiB,
		log:          eng.Logger(),
	}
}

// Run blocks, ticking at the configured interval until ctx is
// cancelled.
func (c *Compactor) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.sweep(); err != nil {
				c.log.Warnw("compaction sweep failed, will retry next tick", "err", err)
			}
		}
	}
}

// sweep performs as many merges as are currently eligible: while more
// than two small segments remain, pop the two oldest and merge them.
// Per spec.md §4.6 each iteration strictly reduces the small-segment
// count by one, so any bounded input converges.
func (c *Compactor) sweep() error {
	for {
		small, err := c.smallSegmentsDescending()
		if err != nil {
			return err
		}
		if len(small) <= 2 {
			return nil
		}

		older, newer := small[len(small)-1], small[len(small)-2]
		if err := c.mergeOne(older, newer); err != nil {
			return err
		}
	}
}

// smallSegmentsDescending returns every segment whose SST size is below
// the configured limit, newest first (the same order Directory.List
// produces, since it already filters nothing — we filter here).
func (c *Compactor) smallSegmentsDescending() ([]segment.Stem, error) {
	stems, err := c.dir.List()
	if err != nil {
		return nil, err
	}

	var small []segment.Stem
	for _, stem := range stems {
		_, data, _, err := c.dir.Open(stem)
		if err != nil {
			continue
		}
		sizeMB, err := data.SizeMB()
		data.Close()
		if err != nil {
			continue
		}
		if sizeMB < c.sizeLimitMiB {
			small = append(small, stem)
		}
	}

	sort.Slice(small, func(i, j int) bool { return small[j].Less(small[i]) })
	return small, nil
}

// mergeOne merges older and newer into a single new segment stemmed
// from older, per spec.md §4.6: insert older's entries first, then
// newer's, so newer overwrites on duplicate key.
func (c *Compactor) mergeOne(older, newer segment.Stem) error {
	mt := memtable.NewAVLTree()

	if err := loadInto(mt, c.dir, older); err != nil {
		return err
	}
	if err := loadInto(mt, c.dir, newer); err != nil {
		return err
	}

	newStem := older.Next()
	idx := segment.NewIndex(newStem.IndexPath(c.dir.Path()))
	data := segment.NewData(newStem.DataPath(c.dir.Path()))
	bl := segment.NewBloom()

	var mergeErr error
	for rec := range mt.InOrder() {
		offset, err := data.Append(rec.Key, rec.Value)
		if err != nil {
			mergeErr = err
			break
		}
		if err := idx.Append(rec.Key, offset); err != nil {
			mergeErr = err
			break
		}
		bl.Add(rec.Key)
	}
	multierr.AppendInto(&mergeErr, idx.Close())
	multierr.AppendInto(&mergeErr, data.Close())

	if mergeErr != nil {
		// The new segment must not be installed on failure, per
		// spec.md §4.6's failure model: its partial files are removed so
		// Directory.List never reports them and a retry starts afresh.
		multierr.AppendInto(&mergeErr, c.dir.Remove(newStem))
		return mergeErr
	}

	if err := bl.Save(newStem.BloomPath(c.dir.Path())); err != nil {
		c.log.Warnw("bloom sidecar write failed, continuing without it", "stem", newStem.String(), "err", err)
	}

	if err := c.manifest.Append(manifest.Record{
		Op:      manifest.OpCompactionInstalled,
		Stem:    newStem.String(),
		Parents: older.String() + "," + newer.String(),
	}); err != nil {
		c.log.Warnw("manifest append failed after compaction", "stem", newStem.String(), "err", err)
	}

	// Inputs are deleted only after the new segment's files are fully
	// written and installed. A failure here is tolerated: the next
	// sweep must re-process the stale input idempotently.
	for _, stem := range []segment.Stem{older, newer} {
		if err := c.dir.Remove(stem); err != nil {
			c.log.Warnw("failed to remove compacted input, will retry", "stem", stem.String(), "err", err)
			continue
		}
		if err := c.manifest.Append(manifest.Record{Op: manifest.OpSegmentDeleted, Stem: stem.String()}); err != nil {
			c.log.Warnw("manifest append failed after segment deletion", "stem", stem.String(), "err", err)
		}
	}

	return nil
}

func loadInto(mt memtable.Memtable, dir *segment.Directory, stem segment.Stem) error {
	idx, data, _, err := dir.Open(stem)
	if err != nil {
		return err
	}
	defer idx.Close()
	defer data.Close()

	for entry, err := range idx.Scan() {
		if err != nil {
			return err
		}
		value, err := data.Read(entry.Key, entry.Offset)
		if err != nil {
			return err
		}
		mt.Set(entry.Key, value)
	}
	return nil
}
