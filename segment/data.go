package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/flashkv/flashkv/internal/kverrors"
)

// Data is the append-only (key,value) payload file (the "SST" half of a
// segment). Records are little-endian:
//
//	u8  key_len
//	u8[key_len] key
//	u32 value_len
//	u8[value_len] value
//
// Closed segments are immutable: Read opens, seeks, reads and closes its
// own file handle per call rather than caching one, so any number of
// readers may operate concurrently.
type Data struct {
	path string
	w    *os.File // non-nil only while this segment is the active flush/compaction target
}

// NewData returns a handle over the data file at path. The file is
// created lazily on the first Append.
func NewData(path string) *Data {
	return &Data{path: path}
}

// Append writes one (key,value) record and returns the byte offset of its
// first byte ("key_len"), suitable for storing in the paired index.
// Append is not safe for concurrent use; callers serialize it externally
// via whatever lock guards the flush or compaction in progress.
func (d *Data) Append(key, value []byte) (uint64, error) {
	if d.w == nil {
		f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, kverrors.WrapIO("create", d.path, err)
		}
		d.w = f
	}

	offset, err := d.w.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, kverrors.WrapIO("seek", d.path, err)
	}

	if len(key) == 0 || len(key) > 255 {
		return 0, fmt.Errorf("segment: key length %d out of range 1..255", len(key))
	}
	if err := writeRecord(d.w, key, value); err != nil {
		return 0, kverrors.WrapIO("write", d.path, err)
	}

	return uint64(offset), nil
}

func writeRecord(w io.Writer, key, value []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(len(key))); err != nil {
		return err
	}
	if _, err := w.Write(key); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(value))); err != nil {
		return err
	}
	if _, err := w.Write(value); err != nil {
		return err
	}
	return nil
}

// Close flushes and releases the writer handle opened by Append, if any.
func (d *Data) Close() error {
	if d.w == nil {
		return nil
	}
	err := d.w.Close()
	d.w = nil
	if err != nil {
		return kverrors.WrapIO("close", d.path, err)
	}
	return nil
}

// Read seeks to offset, reads one record, and verifies its embedded key
// matches expectedKey before returning its value. A mismatch is reported
// as kverrors.ErrCorruption: the offset came from the paired index, so a
// mismatched key means the two files have desynchronised.
func (d *Data) Read(expectedKey []byte, offset uint64) ([]byte, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, kverrors.WrapIO("open", d.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, kverrors.WrapIO("seek", d.path, err)
	}

	var keyLen uint8
	if err := binary.Read(f, binary.LittleEndian, &keyLen); err != nil {
		return nil, kverrors.WrapIO("read", d.path, err)
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(f, key); err != nil {
		return nil, kverrors.WrapIO("read", d.path, err)
	}

	if !bytes.Equal(key, expectedKey) {
		return nil, kverrors.ErrCorruption
	}

	var valueLen uint32
	if err := binary.Read(f, binary.LittleEndian, &valueLen); err != nil {
		return nil, kverrors.WrapIO("read", d.path, err)
	}

	value := make([]byte, valueLen)
	if _, err := io.ReadFull(f, value); err != nil {
		return nil, kverrors.WrapIO("read", d.path, err)
	}

	return value, nil
}

// SizeMB returns the current file length in mebibytes.
func (d *Data) SizeMB() (float64, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, kverrors.WrapIO("stat", d.path, err)
	}
	return float64(info.Size()) / (1024 * 1024), nil
}
