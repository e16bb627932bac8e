package manifest

import (
	"io"
	"iter"
	"os"
	"path/filepath"
)

// Reader replays a manifest file from the start, adapted from the
// teacher's wal/wal_reader.go iter.Seq2 replay.
type Reader struct {
	f *os.File
}

// OpenReader opens the manifest file under dir for replay. A missing
// manifest (fresh data directory) yields a reader whose All() sequence
// is simply empty.
func OpenReader(dir string) (*Reader, error) {
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f}, nil
}

// All yields every record in the manifest, oldest first.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if _, err := r.f.Seek(0, io.SeekStart); err != nil {
			yield(Record{}, err)
			return
		}
		for {
			rec, err := Decode(r.f)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}
