package segment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Stem is a segment's identity: a Unix-epoch seconds timestamp T for a
// freshly flushed segment, or T_G for the Gth compaction generation
// derived from a segment named T. The global newest-first order is
// sort-descending by (T, G).
type Stem struct {
	T int64
	G int
}

// String renders the stem the way it appears on disk: "T" when G is 0,
// "T_G" otherwise.
func (s Stem) String() string {
	if s.G == 0 {
		return strconv.FormatInt(s.T, 10)
	}
	return fmt.Sprintf("%d_%d", s.T, s.G)
}

// Next returns the stem for a segment produced by compacting this one:
// T stays the same, G increments by one.
func (s Stem) Next() Stem {
	return Stem{T: s.T, G: s.G + 1}
}

// Less reports whether s sorts before o in ascending (T, G) order.
func (s Stem) Less(o Stem) bool {
	if s.T != o.T {
		return s.T < o.T
	}
	return s.G < o.G
}

// ParseStem parses a segment file stem of the form "T" or "T_G".
func ParseStem(name string) (Stem, error) {
	parts := strings.SplitN(name, "_", 2)

	t, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Stem{}, fmt.Errorf("segment: malformed stem %q: %w", name, err)
	}

	if len(parts) == 1 {
		return Stem{T: t}, nil
	}

	g, err := strconv.Atoi(parts[1])
	if err != nil {
		return Stem{}, fmt.Errorf("segment: malformed stem %q: %w", name, err)
	}
	return Stem{T: t, G: g}, nil
}

// IndexPath and DataPath return the paired file paths for a segment stem
// rooted at dir.
func (s Stem) IndexPath(dir string) string { return filepath.Join(dir, s.String()+".idx") }
func (s Stem) DataPath(dir string) string  { return filepath.Join(dir, s.String()+".sst") }
func (s Stem) BloomPath(dir string) string { return filepath.Join(dir, s.String()+".bloom") }
