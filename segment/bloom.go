package segment

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/flashkv/flashkv/internal/kverrors"
)

// expectedKeys sizes the bloom filter for a freshly flushed or compacted
// segment; it is a capacity hint, not a hard limit.
const expectedKeys = 100_000

const bloomFalsePositiveRate = 0.01

// Bloom is a per-segment probabilistic membership filter, consulted by
// the engine's Get before it calls Index.Find, as a fast, safe (no false
// negatives) short-circuit before paying for the resync-by-probe binary
// search. It is an optimization
// only: a missing or corrupt sidecar degrades to always-maybe, never to
// a wrong answer.
type Bloom struct {
	filter *bloom.BloomFilter
}

// NewBloom returns an empty filter sized for expectedKeys insertions.
func NewBloom() *Bloom {
	return &Bloom{filter: bloom.NewWithEstimates(expectedKeys, bloomFalsePositiveRate)}
}

// Add records key as present.
func (b *Bloom) Add(key []byte) {
	b.filter.Add(key)
}

// MayContain reports false only when key is definitely absent; true
// means "maybe present, go check the index".
func (b *Bloom) MayContain(key []byte) bool {
	return b.filter.Test(key)
}

// Save persists the filter as a sidecar file: hash-function count (u32),
// bit-array length in bits (u32), the bit array itself, and a trailing
// CRC32 over the preceding bytes — the same framing shape as the
// teacher's sst.diskSSTWriter.writeBloomFilter.
func (b *Bloom) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return kverrors.WrapIO("create", path, err)
	}
	defer f.Close()

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(f, crc)

	if err := binary.Write(mw, binary.LittleEndian, uint32(b.filter.K())); err != nil {
		return kverrors.WrapIO("write", path, err)
	}
	if err := binary.Write(mw, binary.LittleEndian, uint32(b.filter.Cap())); err != nil {
		return kverrors.WrapIO("write", path, err)
	}
	if _, err := b.filter.WriteTo(mw); err != nil {
		return kverrors.WrapIO("write", path, err)
	}
	if err := binary.Write(f, binary.LittleEndian, crc.Sum32()); err != nil {
		return kverrors.WrapIO("write", path, err)
	}
	return nil
}

// LoadBloom reads a sidecar written by Save. A missing file is not an
// error: callers fall back to an always-maybe filter so Find degrades to
// a plain binary search rather than failing. A sidecar whose trailing
// CRC32 does not match its contents is reported as kverrors.ErrCorruption.
func LoadBloom(path string) (*Bloom, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kverrors.WrapIO("open", path, err)
	}
	if len(raw) < 4 {
		return nil, kverrors.ErrCorruption
	}
	body := raw[:len(raw)-4]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(raw[len(raw)-4:]) {
		return nil, kverrors.ErrCorruption
	}
	r := bytes.NewReader(body)

	var k, m uint32
	if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
		return nil, kverrors.ErrCorruption
	}
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return nil, kverrors.ErrCorruption
	}

	filter := bloom.New(uint(m), uint(k))
	if _, err := filter.ReadFrom(r); err != nil {
		return nil, kverrors.ErrCorruption
	}

	return &Bloom{filter: filter}, nil
}
