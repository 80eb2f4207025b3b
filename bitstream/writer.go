package bitstream

import (
	"encoding/binary"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/ogg"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

const maxPayload = 255 * ogg.MaxSegments

// A Writer accumulates bits and flushes them to its destination as complete
// Ogg pages. The caller decides page boundaries with FlushPage; the writer
// handles lacing, flags, the granule field and the checksum.
//
// The stream serial number is fixed at 1 and the granule position is a
// 32-bit value. The high half of the granule field is zero unless the low
// half is the 0xFFFFFFFF placeholder, in which case both halves carry it.
type Writer struct {
	dst io.Writer

	buffer     byte
	bitsStored uint

	payload      [maxPayload]byte
	payloadBytes int

	first     bool
	continued bool
	granule   uint32
	seqno     uint32

	header [ogg.HeaderSize + ogg.MaxSegments]byte
	err    error
}

// NewWriter returns a Writer emitting pages to dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst, first: true}
}

// WriteBit appends one bit to the current page payload.
func (w *Writer) WriteBit(bit bool) {
	if w.err != nil {
		return
	}
	if bit {
		w.buffer |= 1 << w.bitsStored
	}
	w.bitsStored++
	if w.bitsStored == 8 {
		w.FlushBits()
	}
}

// WriteUint appends the low n bits of v, n at most 32. Values that do not
// fit in n bits put the writer in an error state.
func (w *Writer) WriteUint(v uint32, n uint) {
	if n < 32 && v>>(n-1) > 1 {
		if w.err == nil {
			w.err = wwise.NewError(wwise.Capacity, "value %d does not fit in %d bits", v, n)
		}
		return
	}
	for i := uint(0); i < n; i++ {
		w.WriteBit(v&(1<<i) != 0)
	}
}

// SetGranule sets the granule position written into the next page header.
func (w *Writer) SetGranule(g uint32) {
	w.granule = g
}

// FlushBits pads the partial byte with zero bits and commits it to the
// payload.
func (w *Writer) FlushBits() {
	if w.err != nil || w.bitsStored == 0 {
		return
	}
	if w.payloadBytes == maxPayload {
		w.err = wwise.NewError(wwise.Capacity, "ran out of space in an Ogg packet")
		return
	}
	w.payload[w.payloadBytes] = w.buffer
	w.payloadBytes++
	w.bitsStored = 0
	w.buffer = 0
}

// FlushPage writes the accumulated payload as one page. nextContinued marks
// the following page as continuing a packet; last sets the last-page flag.
// An empty payload writes nothing.
func (w *Writer) FlushPage(nextContinued, last bool) error {
	if w.payloadBytes != maxPayload {
		w.FlushBits()
	}
	if w.err != nil {
		return w.err
	}
	if w.payloadBytes == 0 {
		return nil
	}

	// round up so an exact multiple of 255 gets a trailing zero lacing
	// value, except at the absolute maximum
	segments := (w.payloadBytes + 255) / 255
	if segments == ogg.MaxSegments+1 {
		segments = ogg.MaxSegments
	}

	h := w.header[:]
	copy(h[0:4], "OggS")
	h[4] = 0
	h[5] = 0
	if w.continued {
		h[5] |= ogg.FlagContinued
	}
	if w.first {
		h[5] |= ogg.FlagFirst
	}
	if last {
		h[5] |= ogg.FlagLast
	}
	binary.LittleEndian.PutUint32(h[6:10], w.granule)
	if w.granule == 0xFFFFFFFF {
		binary.LittleEndian.PutUint32(h[10:14], 0xFFFFFFFF)
	} else {
		binary.LittleEndian.PutUint32(h[10:14], 0)
	}
	binary.LittleEndian.PutUint32(h[14:18], 1)
	binary.LittleEndian.PutUint32(h[18:22], w.seqno)
	binary.LittleEndian.PutUint32(h[22:26], 0)
	h[26] = byte(segments)

	for i, bytesLeft := 0, w.payloadBytes; i < segments; i++ {
		if bytesLeft >= 255 {
			bytesLeft -= 255
			h[27+i] = 255
		} else {
			h[27+i] = byte(bytesLeft)
		}
	}

	header := h[:ogg.HeaderSize+segments]
	body := w.payload[:w.payloadBytes]
	crc := ogg.Checksum(ogg.Checksum(0, header), body)
	binary.LittleEndian.PutUint32(header[22:26], crc)

	if _, err := w.dst.Write(header); err != nil {
		w.err = err
		return err
	}
	if _, err := w.dst.Write(body); err != nil {
		w.err = err
		return err
	}

	w.seqno++
	w.first = false
	w.continued = nextContinued
	w.payloadBytes = 0
	return nil
}

// Close flushes any remaining payload as a final page.
func (w *Writer) Close() error {
	return w.FlushPage(false, false)
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}
