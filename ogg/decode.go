package ogg

import (
	"encoding/binary"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

const (
	// HeaderSize is the fixed size of a page header before the segment table.
	HeaderSize = 27
	// MaxSegments is the segment table capacity of a single page.
	MaxSegments = 255
	// MaxPageSize bounds a complete page: header, full segment table and a
	// body of 255 full segments.
	MaxPageSize = HeaderSize + MaxSegments + MaxSegments*255
)

// Page header flag bits.
const (
	FlagContinued = 0x01
	FlagFirst     = 0x02
	FlagLast      = 0x04
)

// A Packet is a logical packet reassembled from one or more page segments.
type Packet struct {
	Data []byte
	// Granule is the granule position of the page this packet completed on,
	// or -1 when the packet was not the last to complete on its page.
	Granule int64
	// Last is true for the final packet of the stream, completed on a page
	// carrying the last-page flag.
	Last bool
}

// A PacketReader sequentially extracts packets from a single-stream Ogg
// byte slice, verifying the checksum of every page it consumes.
type PacketReader struct {
	data   []byte
	offset int
	serial uint32
	// packets completed on the current page, not yet handed out
	queue []Packet
	// partial packet continuing onto the next page
	pending []byte
	started bool
	sawLast bool
}

// NewPacketReader returns a reader over data, which must start at the first
// page of the stream.
func NewPacketReader(data []byte) *PacketReader {
	return &PacketReader{data: data}
}

// Serial returns the stream serial number, valid once a page has been read.
func (r *PacketReader) Serial() uint32 {
	return r.serial
}

// Next returns the next packet. It returns io.EOF after the packet that
// completed on the last-page-flagged page, and an error if the stream is
// corrupt or ends without one.
func (r *PacketReader) Next() (Packet, error) {
	for len(r.queue) == 0 {
		if r.sawLast {
			return Packet{}, io.EOF
		}
		if err := r.readPage(); err != nil {
			return Packet{}, err
		}
	}
	p := r.queue[0]
	r.queue = r.queue[1:]
	return p, nil
}

func (r *PacketReader) readPage() error {
	if r.offset >= len(r.data) {
		return wwise.NewError(wwise.Malformed, "stream ended without a last-page flag")
	}
	rest := r.data[r.offset:]
	if len(rest) < HeaderSize || string(rest[0:4]) != "OggS" {
		return wwise.NewError(wwise.Malformed, "bad page capture pattern at offset %d", r.offset)
	}
	if rest[4] != 0 {
		return wwise.NewError(wwise.Unsupported, "page structure version %d", rest[4])
	}

	flags := rest[5]
	granule := int64(binary.LittleEndian.Uint64(rest[6:14]))
	serial := binary.LittleEndian.Uint32(rest[14:18])
	segments := int(rest[26])
	headerLen := HeaderSize + segments
	if len(rest) < headerLen {
		return wwise.NewError(wwise.Malformed, "truncated segment table at offset %d", r.offset)
	}

	bodyLen := 0
	for _, v := range rest[HeaderSize:headerLen] {
		bodyLen += int(v)
	}
	if len(rest) < headerLen+bodyLen {
		return wwise.NewError(wwise.Malformed, "truncated page body at offset %d", r.offset)
	}
	header := rest[:headerLen]
	body := rest[headerLen : headerLen+bodyLen]

	var scratch [HeaderSize + MaxSegments]byte
	copy(scratch[:], header)
	scratch[22], scratch[23], scratch[24], scratch[25] = 0, 0, 0, 0
	want := binary.LittleEndian.Uint32(header[22:26])
	if got := Checksum(Checksum(0, scratch[:headerLen]), body); got != want {
		return wwise.NewError(wwise.Malformed, "page checksum mismatch at offset %d", r.offset)
	}

	if !r.started {
		r.serial = serial
		r.started = true
	} else if serial != r.serial {
		return wwise.NewError(wwise.Unsupported, "multiplexed stream: serial %d after %d", serial, r.serial)
	}

	if flags&FlagContinued != 0 {
		if r.pending == nil {
			return wwise.NewError(wwise.Malformed, "continued page with no packet in progress at offset %d", r.offset)
		}
	} else if r.pending != nil {
		return wwise.NewError(wwise.Malformed, "packet left unfinished before offset %d", r.offset)
	}

	pos := 0
	lastDone := -1
	for _, v := range rest[HeaderSize:headerLen] {
		r.pending = append(r.pending, body[pos:pos+int(v)]...)
		pos += int(v)
		if v < 255 {
			r.queue = append(r.queue, Packet{Data: r.pending, Granule: -1})
			lastDone = len(r.queue) - 1
			r.pending = nil
		}
	}
	if lastDone >= 0 {
		r.queue[lastDone].Granule = granule
	}
	if flags&FlagLast != 0 {
		r.sawLast = true
		// a packet spanning past a last page is discarded, as libogg does
		r.pending = nil
		if lastDone >= 0 {
			r.queue[lastDone].Last = true
		}
	}

	r.offset += headerLen + bodyLen
	return nil
}
