// Package bitstream provides the bit-level reader and the page-producing
// bit writer used to take Vorbis headers apart and put them back together.
// Both follow the Vorbis bit-packing convention: the first bit of a byte is
// its least significant bit, and multi-bit integers accumulate starting at
// bit zero.
//
// Reader and Writer keep a sticky error instead of returning one from every
// bit operation. Check Err after a parsing stage, or rely on FlushPage and
// Close reporting it.
package bitstream

import (
	"io"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// A Reader reads single bits and small unsigned integers from an underlying
// byte stream.
type Reader struct {
	src io.Reader

	buffer   byte
	bitsLeft uint
	total    uint64

	err     error
	scratch [1]byte
}

// NewReader returns a Reader consuming bytes from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// ReadBit reads one bit. After an error it returns false; check Err.
func (r *Reader) ReadBit() bool {
	if r.err != nil {
		return false
	}
	if r.bitsLeft == 0 {
		if _, err := io.ReadFull(r.src, r.scratch[:]); err != nil {
			r.err = wwise.NewError(wwise.EndOfInput, "ran out of bits")
			return false
		}
		r.buffer = r.scratch[0]
		r.bitsLeft = 8
	}
	r.total++
	r.bitsLeft--
	return r.buffer&(1<<(7-r.bitsLeft)) != 0
}

// ReadUint reads an n-bit unsigned integer, n at most 32.
func (r *Reader) ReadUint(n uint) uint32 {
	var v uint32
	for i := uint(0); i < n; i++ {
		if r.ReadBit() {
			v |= 1 << i
		}
	}
	return v
}

// TotalBitsRead returns the number of bits consumed so far.
func (r *Reader) TotalBitsRead() uint64 {
	return r.total
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}
