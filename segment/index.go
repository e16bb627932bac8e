package segment

import (
	"bytes"
	"encoding/binary"
	"io"
	"iter"
	"os"

	"github.com/flashkv/flashkv/internal/kverrors"
)

// recordHeaderSize is the fixed-size tail of an index record that follows
// the variable-length key: an 8-byte little-endian data offset.
const recordHeaderSize = 8

// IndexEntry is one (key, data_offset) pair as produced by Scan.
type IndexEntry struct {
	Key    []byte
	Offset uint64
}

// Index is the append-only, sorted-by-insertion index file (the "IDX"
// half of a segment): variable-length (key_len, key, data_offset)
// records in ascending-key order. Because records are variable-length,
// lookups cannot index by record number; Find instead bisects byte
// positions and resyncs to the nearest valid record start at each probe.
type Index struct {
	path string
	w    *os.File // non-nil only while this segment is the active flush/compaction target
}

// NewIndex returns a handle over the index file at path. The file is
// created lazily on the first Append.
func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Append writes one (key, data_offset) record. The caller guarantees keys
// are appended in ascending order; Append itself does not check this.
func (ix *Index) Append(key []byte, offset uint64) error {
	if ix.w == nil {
		f, err := os.OpenFile(ix.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return kverrors.WrapIO("create", ix.path, err)
		}
		ix.w = f
	}

	if err := binary.Write(ix.w, binary.LittleEndian, uint8(len(key))); err != nil {
		return kverrors.WrapIO("write", ix.path, err)
	}
	if _, err := ix.w.Write(key); err != nil {
		return kverrors.WrapIO("write", ix.path, err)
	}
	if err := binary.Write(ix.w, binary.LittleEndian, offset); err != nil {
		return kverrors.WrapIO("write", ix.path, err)
	}
	return nil
}

// Close flushes and releases the writer handle opened by Append, if any.
func (ix *Index) Close() error {
	if ix.w == nil {
		return nil
	}
	err := ix.w.Close()
	ix.w = nil
	if err != nil {
		return kverrors.WrapIO("close", ix.path, err)
	}
	return nil
}

// isAlphanumericASCII reports whether every byte of b is an ASCII
// letter or digit. The resync heuristic below is sound only while every
// live key satisfies this invariant (enforced at the request surface).
func isAlphanumericASCII(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

// readHeaderAt attempts to read a (key_len, key) pair at absolute
// position p in f, without advancing past fileLen. It reports ok=false
// if the bytes at p cannot be a well-formed header.
func readHeaderAt(f *os.File, p int64, fileLen int64) (keyLen uint8, key []byte, ok bool) {
	if p < 0 || p >= fileLen {
		return 0, nil, false
	}
	if _, err := f.Seek(p, io.SeekStart); err != nil {
		return 0, nil, false
	}

	var kl uint8
	if err := binary.Read(f, binary.LittleEndian, &kl); err != nil {
		return 0, nil, false
	}
	if kl == 0 {
		return 0, nil, false
	}
	if p+1+int64(kl) > fileLen {
		return 0, nil, false
	}

	buf := make([]byte, kl)
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0, nil, false
	}
	return kl, buf, true
}

// resyncBackward walks p downward until p == 0 or the bytes at p form a
// plausible record header: key_len in [1,255] and the following key_len
// bytes decode to an all-alphanumeric ASCII key.
func resyncBackward(f *os.File, p int64, fileLen int64) int64 {
	for p > 0 {
		if kl, key, ok := readHeaderAt(f, p, fileLen); ok && kl >= 1 && isAlphanumericASCII(key) {
			return p
		}
		p--
	}
	return 0
}

// Find performs the binary-search-by-probe lookup and returns the data
// offset for key, or ok=false if key is absent from this index.
func (ix *Index) Find(key []byte) (offset uint64, ok bool, err error) {
	f, err := os.Open(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, kverrors.WrapIO("open", ix.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, false, kverrors.WrapIO("stat", ix.path, err)
	}
	fileLen := info.Size()

	left, right := int64(0), fileLen
	for left < right {
		mid := (left + right) / 2
		mid = resyncBackward(f, mid, fileLen)

		kl, recKey, ok := readHeaderAt(f, mid, fileLen)
		if !ok {
			// A probe that cannot resync to any valid record indicates a
			// malformed index; report it as corruption, which the engine
			// logs and treats as a miss so the store stays available
			// (§7 Corruption).
			return 0, false, kverrors.ErrCorruption
		}

		var off uint64
		if err := binary.Read(f, binary.LittleEndian, &off); err != nil {
			return 0, false, kverrors.WrapIO("read", ix.path, err)
		}

		switch bytes.Compare(key, recKey) {
		case -1:
			right = mid
		case 1:
			// Skip the whole current record: header byte + key + offset.
			left = mid + 1 + int64(kl) + recordHeaderSize
		default:
			return off, true, nil
		}
	}

	return 0, false, nil
}

// Scan reads the index sequentially from the start, yielding one record
// at a time. It is used only by compaction.
func (ix *Index) Scan() iter.Seq2[IndexEntry, error] {
	return func(yield func(IndexEntry, error) bool) {
		f, err := os.Open(ix.path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			yield(IndexEntry{}, kverrors.WrapIO("open", ix.path, err))
			return
		}
		defer f.Close()

		for {
			var kl uint8
			if err := binary.Read(f, binary.LittleEndian, &kl); err != nil {
				if err == io.EOF {
					return
				}
				yield(IndexEntry{}, kverrors.WrapIO("read", ix.path, err))
				return
			}

			key := make([]byte, kl)
			if _, err := io.ReadFull(f, key); err != nil {
				yield(IndexEntry{}, kverrors.WrapIO("read", ix.path, err))
				return
			}

			var offset uint64
			if err := binary.Read(f, binary.LittleEndian, &offset); err != nil {
				yield(IndexEntry{}, kverrors.WrapIO("read", ix.path, err))
				return
			}

			if !yield(IndexEntry{Key: key, Offset: offset}, nil) {
				return
			}
		}
	}
}
