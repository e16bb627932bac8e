// Package engine ties the memtable, the segment directory and the
// manifest together behind the set/get/delete request surface, and
// hosts the shared lock the background workers coordinate through.
package engine

import (
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flashkv/flashkv/internal/config"
	"github.com/flashkv/flashkv/internal/kverrors"
	"github.com/flashkv/flashkv/internal/manifest"
	"github.com/flashkv/flashkv/memtable"
	"github.com/flashkv/flashkv/segment"
)

const maxKeyLen = 10

// Engine is the process-global store: one memtable, one segment
// directory, one manifest, guarded by a single RWMutex per spec.md §5.
type Engine struct {
	mu sync.RWMutex
	mt memtable.Memtable

	dir      *segment.Directory
	manifest *manifest.Writer
	opts     *config.Options
	log      *zap.SugaredLogger
}

// Open wires a fresh Engine from the given options, creating the data
// directory and manifest file if they do not yet exist.
func Open(opts *config.Options) (*Engine, error) {
	dir, err := segment.NewDirectory(opts.DataDir)
	if err != nil {
		return nil, kverrors.WrapIO("open-data-dir", opts.DataDir, err)
	}
	mw, err := manifest.NewWriter(opts.DataDir, opts.Logger)
	if err != nil {
		return nil, kverrors.WrapIO("open-manifest", opts.DataDir, err)
	}
	return &Engine{
		mt:       memtable.NewAVLTree(),
		dir:      dir,
		manifest: mw,
		opts:     opts,
		log:      opts.Logger,
	}, nil
}

// Close releases the manifest file handle. The memtable and segment
// directory own no unclosed resources of their own.
func (e *Engine) Close() error {
	return e.manifest.Close()
}

func validateKey(key []byte) error {
	if len(key) == 0 || len(key) > maxKeyLen {
		return kverrors.ErrInvalidKey
	}
	for _, b := range key {
		isDigit := b >= '0' && b <= '9'
		isUpper := b >= 'A' && b <= 'Z'
		isLower := b >= 'a' && b <= 'z'
		if !isDigit && !isUpper && !isLower {
			return kverrors.ErrInvalidKey
		}
	}
	return nil
}

// Set inserts or overwrites key with value under the exclusive lock.
func (e *Engine) Set(key, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mt.Set(key, value)
	return nil
}

// Delete removes key from the memtable if present. Per spec.md §9 the
// store carries no tombstones: a delete affects only the memtable, so
// a key already flushed to a segment remains visible there, and
// compaction carries it into the merged segment — accepted as the
// simplest of the spec's sanctioned alternatives.
func (e *Engine) Delete(key []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mt.Unset(key)
	return nil
}

// Get resolves key by probing the memtable, then falling back to
// segments newest-first, per spec.md §2's data flow.
func (e *Engine) Get(key []byte) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	e.mu.RLock()
	value, ok := e.mt.Get(key)
	e.mu.RUnlock()
	if ok {
		return value, nil
	}

	stems, err := e.dir.List()
	if err != nil {
		return nil, kverrors.WrapIO("list-segments", e.opts.DataDir, err)
	}

	for _, stem := range stems {
		idx, data, bloom, err := e.dir.Open(stem)
		if err != nil {
			e.log.Warnw("failed to open segment, skipping", "stem", stem.String(), "err", err)
			continue
		}

		if bloom != nil && !bloom.MayContain(key) {
			idx.Close()
			data.Close()
			continue
		}

		offset, found, err := idx.Find(key)
		if err != nil {
			e.log.Warnw("index probe failed, treating as miss", "stem", stem.String(), "err", err)
			idx.Close()
			data.Close()
			continue
		}
		if !found {
			idx.Close()
			data.Close()
			continue
		}

		v, err := data.Read(key, offset)
		idx.Close()
		data.Close()
		if err != nil {
			// Corruption is demoted to NotFound at the query level,
			// per spec.md §7, to preserve availability.
			e.log.Warnw("segment record corrupt, treating as miss", "stem", stem.String(), "err", err)
			continue
		}
		return v, nil
	}

	return nil, kverrors.ErrNotFound
}

// Footprint reports the memtable's current conservative size estimate
// under a shared lease, used by FlushWatcher.
func (e *Engine) Footprint() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mt.Footprint()
}

// Directory exposes the segment directory for the Compactor, which
// needs no memtable access: closed segments are immutable, so merging
// them requires none of Engine's locking.
func (e *Engine) Directory() *segment.Directory { return e.dir }

// Manifest exposes the audit-trail writer for the Compactor.
func (e *Engine) Manifest() *manifest.Writer { return e.manifest }

// Options exposes the engine's configuration for background workers.
func (e *Engine) Options() *config.Options { return e.opts }

// Logger exposes the shared structured logger for background workers.
func (e *Engine) Logger() *zap.SugaredLogger { return e.log }

// TryFlush implements FlushWatcher's lock-upgrade dance: check under a
// shared lease, then drop and re-acquire exclusively, re-checking
// before committing, since the upgrade is not atomic. Reports whether
// a flush happened.
func (e *Engine) TryFlush(thresholdBytes int64) (bool, error) {
	if e.Footprint() <= thresholdBytes {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mt.Footprint() <= thresholdBytes {
		return false, nil
	}

	stem := segment.Stem{T: time.Now().Unix()}
	idx := segment.NewIndex(stem.IndexPath(e.dir.Path()))
	data := segment.NewData(stem.DataPath(e.dir.Path()))
	bl := segment.NewBloom()

	var flushErr error
	for rec := range e.mt.InOrder() {
		offset, err := data.Append(rec.Key, rec.Value)
		if err != nil {
			flushErr = err
			break
		}
		if err := idx.Append(rec.Key, offset); err != nil {
			flushErr = err
			break
		}
		bl.Add(rec.Key)
	}

	if flushErr != nil {
		multierr.AppendInto(&flushErr, idx.Close())
		multierr.AppendInto(&flushErr, data.Close())
		// Partial segment files are left on disk per spec.md §4.5's
		// failure model; the memtable is deliberately NOT cleared.
		return false, kverrors.WrapIO("flush", stem.String(), flushErr)
	}

	var closeErr error
	multierr.AppendInto(&closeErr, idx.Close())
	multierr.AppendInto(&closeErr, data.Close())
	if closeErr != nil {
		return false, kverrors.WrapIO("flush", stem.String(), closeErr)
	}
	if err := bl.Save(stem.BloomPath(e.dir.Path())); err != nil {
		e.log.Warnw("bloom sidecar write failed, continuing without it", "stem", stem.String(), "err", err)
	}

	e.mt.Clear()

	if err := e.manifest.Append(manifest.Record{Op: manifest.OpFlushInstalled, Stem: stem.String()}); err != nil {
		e.log.Warnw("manifest append failed after flush", "stem", stem.String(), "err", err)
	}

	return true, nil
}
