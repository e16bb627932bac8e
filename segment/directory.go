package segment

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flashkv/flashkv/internal/kverrors"
)

// Directory enumerates and orders the segments that exist in a data
// directory. List reads only the directory listing; Open loads a
// segment's bloom sidecar but leaves the index and data files to the
// returned handles; Remove deletes a segment's files. Adapted from the teacher's
// segmentmanager directory scan (regexp match + parsed-id sort), here
// keyed by Stem (T, G) instead of a monotonic segment id.
type Directory struct {
	dir string
}

// NewDirectory returns a Directory rooted at dir. dir is created if it
// does not already exist.
func NewDirectory(dir string) (*Directory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kverrors.WrapIO("mkdir", dir, err)
	}
	return &Directory{dir: dir}, nil
}

// Path returns the directory root.
func (d *Directory) Path() string { return d.dir }

// List returns every segment's stem, newest first: (T, G) descending.
// For every .idx found, a matching .sst is assumed to exist (§3); neither
// List nor Open verifies this, so a missing .sst surfaces as an I/O error
// from Data.Read.
func (d *Directory) List() ([]Stem, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, kverrors.WrapIO("readdir", d.dir, err)
	}

	var stems []Stem
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if filepath.Ext(e.Name()) != ".idx" {
			continue
		}

		stem, err := ParseStem(strings.TrimSuffix(e.Name(), ".idx"))
		if err != nil {
			continue
		}
		stems = append(stems, stem)
	}

	sort.Slice(stems, func(i, j int) bool { return stems[j].Less(stems[i]) })
	return stems, nil
}

// Open returns the Index, Data and Bloom handles for stem, rooted at d.
func (d *Directory) Open(stem Stem) (*Index, *Data, *Bloom, error) {
	bl, err := LoadBloom(stem.BloomPath(d.dir))
	if err != nil {
		bl = nil // degrade to always-maybe rather than fail the lookup
	}
	return NewIndex(stem.IndexPath(d.dir)), NewData(stem.DataPath(d.dir)), bl, nil
}

// Remove deletes both files of a segment (and its bloom sidecar, if any).
// It tolerates the files already being gone so a retried delete after a
// partially-failed one is idempotent.
func (d *Directory) Remove(stem Stem) error {
	for _, p := range []string{stem.IndexPath(d.dir), stem.DataPath(d.dir), stem.BloomPath(d.dir)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return kverrors.WrapIO("remove", p, err)
		}
	}
	return nil
}
