package manifest

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileName is the manifest's fixed name within a data directory.
const FileName = "MANIFEST.log"

// Writer appends Records to a single manifest file, adapted from the
// teacher's wal/wal_writer.go: a direct file handle seeked to the end
// (O_APPEND is avoided because the CRC seek-back-and-patch in
// Record.Encode requires Seek, which O_APPEND writes would race with).
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	log *zap.SugaredLogger
}

// NewWriter opens (creating if necessary) the manifest file under dir.
func NewWriter(dir string, log *zap.SugaredLogger) (*Writer, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, log: log}, nil
}

// Append writes rec and syncs it to disk. A failure here is logged and
// swallowed by callers (FlushWatcher/Compactor): the manifest is an
// audit trail, not a correctness dependency, so a write failure must
// never abort an otherwise-successful flush or compaction.
func (w *Writer) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := rec.Encode(w.f); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
