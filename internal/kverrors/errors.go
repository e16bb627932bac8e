// Package kverrors defines the error kinds shared across the store: the
// sentinel values the request surface and background workers branch on,
// following the same plain sentinel-error style as the teacher's
// wal.ErrCorruptWAL / wal.ErrWALClosed.
package kverrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when a key is empty, longer than 10 bytes,
	// or contains a non-alphanumeric ASCII byte.
	ErrInvalidKey = errors.New("flashkv: invalid key")

	// ErrNotFound is returned when a key is absent from the memtable and
	// every segment. It is a soft result, not a fault.
	ErrNotFound = errors.New("flashkv: key not found")

	// ErrCorruption is returned when an SST record's embedded key does not
	// match the key requested at its offset, or an IDX probe cannot
	// resync. Callers treat it as ErrNotFound at the query level to
	// preserve availability.
	ErrCorruption = errors.New("flashkv: segment corruption")
)

// IOError wraps an underlying filesystem error encountered while reading
// or writing a segment. It surfaces to the client as an internal error;
// background workers log it and retry on the next tick.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("flashkv: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// WrapIO wraps err as an IOError, or returns nil if err is nil.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
