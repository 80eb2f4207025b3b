package wem

import (
	"encoding/binary"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// headerFormat selects how a Wwise audio packet is framed inside the data
// chunk. Newer files use a 16-bit size with or without a 32-bit granule;
// files old enough to carry a full header triad use 32-bit sizes.
type headerFormat int

const (
	// headerStandard6: u16 size, u32 granule
	headerStandard6 headerFormat = iota
	// headerNoGranule2: u16 size only
	headerNoGranule2
	// headerLegacy8: u32 size, u32 granule
	headerLegacy8
)

func (h headerFormat) size() int {
	switch h {
	case headerNoGranule2:
		return 2
	case headerLegacy8:
		return 8
	}
	return 6
}

// A packet locates one Wwise audio packet: its header offset, payload size
// and the absolute granule carried by the header, when the format has one.
type packet struct {
	offset  int
	size    uint32
	granule uint32
	format  headerFormat
}

func readPacket(data []byte, offset int, order binary.ByteOrder, format headerFormat) (packet, error) {
	if offset < 0 || offset+format.size() > len(data) {
		return packet{}, wwise.NewError(wwise.Malformed, "packet header truncated at offset %d", offset)
	}
	p := packet{offset: offset, format: format}
	switch format {
	case headerLegacy8:
		p.size = order.Uint32(data[offset:])
		p.granule = order.Uint32(data[offset+4:])
	case headerNoGranule2:
		p.size = uint32(order.Uint16(data[offset:]))
	default:
		p.size = uint32(order.Uint16(data[offset:]))
		p.granule = order.Uint32(data[offset+2:])
	}
	return p, nil
}

func (p packet) headerSize() int {
	return p.format.size()
}

func (p packet) payloadOffset() int {
	return p.offset + p.headerSize()
}

func (p packet) nextOffset() int {
	return p.offset + p.headerSize() + int(p.size)
}
