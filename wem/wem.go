// Package wem converts Wwise WEM audio to Ogg Vorbis. Wwise stores Vorbis
// audio in a RIFF container with the standard headers stripped or packed
// into vendor-specific chunks; File parses the container and GenerateOgg
// rebuilds a complete Ogg Vorbis stream from it.
package wem

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// PacketFormat overrides the audio packet interpretation chosen by the
// container heuristics.
type PacketFormat int

const (
	// PacketFormatDefault trusts the vorb chunk's mod signal.
	PacketFormatDefault PacketFormat = iota
	// PacketFormatForceMod treats audio packets as modified ones whose
	// type and window bits must be rebuilt.
	PacketFormatForceMod
	// PacketFormatForceNoMod treats audio packets as standard Vorbis.
	PacketFormatForceNoMod
)

// Options adjust how a WEM is parsed and converted.
type Options struct {
	// CodebookData is the packed external codebook blob. Required unless
	// the file inlines its codebooks or carries a full header triad.
	CodebookData []byte
	// InlineCodebooks reads codebooks from the setup data instead of
	// resolving ids against CodebookData.
	InlineCodebooks bool
	// FullSetup copies the setup packet after the codebooks verbatim
	// instead of rebuilding floors, residues, mappings and modes. With
	// InlineCodebooks the codebooks are expected in standard form too.
	FullSetup bool
	// PacketFormat optionally forces modified or standard packets.
	PacketFormat PacketFormat
}

// A File is a parsed WEM container, ready for conversion.
type File struct {
	data  []byte
	order binary.ByteOrder
	opts  Options

	riffSize int

	fmtOffset, fmtSize   int
	cueOffset, cueSize   int
	listOffset, listSize int
	smplOffset, smplSize int
	vorbOffset, vorbSize int
	dataOffset, dataSize int

	channels          uint16
	sampleRate        uint32
	avgBytesPerSecond uint32
	extUnk            uint16
	subtype           uint32

	cueCount  uint32
	loopCount uint32
	loopStart uint32
	loopEnd   uint32

	sampleCount            uint32
	setupPacketOffset      uint32
	firstAudioPacketOffset uint32
	uid                    uint32
	blocksize0Pow          uint8
	blocksize1Pow          uint8

	littleEndian       bool
	noGranule          bool
	modPackets         bool
	headerTriadPresent bool
	oldPacketHeaders   bool
}

// cursor reads integers at absolute offsets with bounds checking, keeping
// the first error.
type cursor struct {
	data  []byte
	order binary.ByteOrder
	pos   int
	err   error
}

func (c *cursor) seek(pos int) {
	c.pos = pos
}

func (c *cursor) fail() {
	if c.err == nil {
		c.err = wwise.NewError(wwise.Malformed, "file truncated at offset %d", c.pos)
	}
}

func (c *cursor) u8() uint8 {
	if c.err != nil {
		return 0
	}
	if c.pos+1 > len(c.data) {
		c.fail()
		return 0
	}
	v := c.data[c.pos]
	c.pos++
	return v
}

func (c *cursor) u16() uint16 {
	if c.err != nil {
		return 0
	}
	if c.pos+2 > len(c.data) {
		c.fail()
		return 0
	}
	v := c.order.Uint16(c.data[c.pos:])
	c.pos += 2
	return v
}

func (c *cursor) u32() uint32 {
	if c.err != nil {
		return 0
	}
	if c.pos+4 > len(c.data) {
		c.fail()
		return 0
	}
	v := c.order.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

// NewFile parses a WEM container held in data.
func NewFile(data []byte, opts Options) (*File, error) {
	f := &File{
		data:       data,
		opts:       opts,
		fmtOffset:  -1,
		fmtSize:    -1,
		cueOffset:  -1,
		cueSize:    -1,
		listOffset: -1,
		listSize:   -1,
		smplOffset: -1,
		smplSize:   -1,
		vorbOffset: -1,
		vorbSize:   -1,
		dataOffset: -1,
		dataSize:   -1,
	}
	if err := f.parse(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) parse() error {
	if len(f.data) < 12 {
		return wwise.NewError(wwise.Malformed, "missing RIFF")
	}
	switch string(f.data[0:4]) {
	case "RIFF":
		f.littleEndian = true
		f.order = binary.LittleEndian
	case "RIFX":
		f.littleEndian = false
		f.order = binary.BigEndian
	default:
		return wwise.NewError(wwise.Malformed, "missing RIFF")
	}

	c := &cursor{data: f.data, order: f.order, pos: 4}
	f.riffSize = int(c.u32()) + 8
	if f.riffSize > len(f.data) {
		return wwise.NewError(wwise.Malformed,
			"RIFF truncated (header claims %d bytes but only %d available, this is likely"+
				" a streaming/prefetch WEM that requires the full .wem file)",
			f.riffSize, len(f.data))
	}
	if string(f.data[8:12]) != "WAVE" {
		return wwise.NewError(wwise.Malformed, "missing WAVE")
	}

	if err := f.readChunks(c); err != nil {
		return err
	}
	if f.fmtOffset == -1 || f.dataOffset == -1 {
		return wwise.NewError(wwise.Malformed, "expected fmt, data chunks")
	}
	if err := f.readFmt(c); err != nil {
		return err
	}

	if f.cueOffset != -1 {
		c.seek(f.cueOffset)
		f.cueCount = c.u32()
	}
	if f.smplOffset != -1 {
		c.seek(f.smplOffset + 0x1C)
		f.loopCount = c.u32()
		if c.err == nil && f.loopCount != 1 {
			return wwise.NewError(wwise.Malformed, "expected one loop")
		}
		c.seek(f.smplOffset + 0x2C)
		f.loopStart = c.u32()
		f.loopEnd = c.u32()
	}

	if err := f.readVorb(c); err != nil {
		return err
	}
	if c.err != nil {
		return c.err
	}

	// fix up and validate loop bounds against the sample count
	if f.loopCount != 0 {
		if f.loopEnd == 0 {
			f.loopEnd = f.sampleCount
		} else {
			f.loopEnd++
		}
		if f.loopStart >= f.sampleCount || f.loopEnd > f.sampleCount || f.loopStart > f.loopEnd {
			return wwise.NewError(wwise.Malformed, "loops out of range")
		}
	}
	return nil
}

func (f *File) readChunks(c *cursor) error {
	chunkOffset := 12
	for chunkOffset < f.riffSize {
		if chunkOffset+8 > f.riffSize {
			return wwise.NewError(wwise.Malformed, "chunk header truncated")
		}
		chunkType := string(f.data[chunkOffset : chunkOffset+4])
		c.seek(chunkOffset + 4)
		chunkSize := int(c.u32())

		switch chunkType {
		case "fmt ":
			f.fmtOffset, f.fmtSize = chunkOffset+8, chunkSize
		case "cue ":
			f.cueOffset, f.cueSize = chunkOffset+8, chunkSize
		case "LIST":
			f.listOffset, f.listSize = chunkOffset+8, chunkSize
		case "smpl":
			f.smplOffset, f.smplSize = chunkOffset+8, chunkSize
		case "vorb":
			f.vorbOffset, f.vorbSize = chunkOffset+8, chunkSize
		case "data":
			f.dataOffset, f.dataSize = chunkOffset+8, chunkSize
		}
		chunkOffset += 8 + chunkSize
	}
	if chunkOffset > f.riffSize {
		return wwise.NewError(wwise.Malformed, "chunk truncated")
	}
	return nil
}

func (f *File) readFmt(c *cursor) error {
	if f.vorbOffset == -1 && f.fmtSize != 0x42 {
		return wwise.NewError(wwise.Unsupported, "expected 0x42 fmt if vorb missing")
	}
	if f.vorbOffset != -1 && f.fmtSize != 0x28 && f.fmtSize != 0x18 && f.fmtSize != 0x12 {
		return wwise.NewError(wwise.Unsupported, "bad fmt size")
	}
	if f.vorbOffset == -1 && f.fmtSize == 0x42 {
		// a 0x42 fmt carries the vorb fields at its tail
		f.vorbOffset = f.fmtOffset + 0x18
	}

	c.seek(f.fmtOffset)
	if codec := c.u16(); c.err == nil && codec != 0xFFFF {
		return wwise.NewError(wwise.Unsupported, "bad codec id %#x", codec)
	}
	f.channels = c.u16()
	f.sampleRate = c.u32()
	f.avgBytesPerSecond = c.u32()
	if blockAlign := c.u16(); c.err == nil && blockAlign != 0 {
		return wwise.NewError(wwise.Malformed, "bad block align")
	}
	if bps := c.u16(); c.err == nil && bps != 0 {
		return wwise.NewError(wwise.Malformed, "expected 0 bps")
	}
	if extra := c.u16(); c.err == nil && int(extra) != f.fmtSize-0x12 {
		return wwise.NewError(wwise.Malformed, "bad extra fmt length")
	}

	if f.fmtSize-0x12 >= 2 {
		f.extUnk = c.u16()
		if f.fmtSize-0x12 >= 6 {
			f.subtype = c.u32()
		}
	}

	if f.fmtSize == 0x28 {
		signature := [16]byte{1, 0, 0, 0, 0, 0, 0x10, 0, 0x80, 0, 0, 0xAA, 0, 0x38, 0x9b, 0x71}
		if c.pos+16 > len(f.data) {
			c.fail()
			return c.err
		}
		if [16]byte(f.data[c.pos:c.pos+16]) != signature {
			return wwise.NewError(wwise.Malformed, "expected signature in extra fmt")
		}
	}
	return c.err
}

func (f *File) readVorb(c *cursor) error {
	switch f.vorbSize {
	case -1, 0x28, 0x2A, 0x2C, 0x32, 0x34:
		c.seek(f.vorbOffset)
	default:
		return wwise.NewError(wwise.Unsupported, "bad vorb size")
	}
	f.sampleCount = c.u32()

	switch f.vorbSize {
	case -1, 0x2A:
		f.noGranule = true
		c.seek(f.vorbOffset + 0x4)
		modSignal := c.u32()
		// the exact meaning of the mod signal is unknown; these values
		// are the ones seen with standard packets
		if modSignal != 0x4A && modSignal != 0x4B && modSignal != 0x69 && modSignal != 0x70 {
			f.modPackets = true
		}
		c.seek(f.vorbOffset + 0x10)
	default:
		c.seek(f.vorbOffset + 0x18)
	}

	switch f.opts.PacketFormat {
	case PacketFormatForceNoMod:
		f.modPackets = false
	case PacketFormatForceMod:
		f.modPackets = true
	}

	f.setupPacketOffset = c.u32()
	f.firstAudioPacketOffset = c.u32()

	switch f.vorbSize {
	case -1, 0x2A:
		c.seek(f.vorbOffset + 0x24)
	case 0x32, 0x34:
		c.seek(f.vorbOffset + 0x2C)
	}

	switch f.vorbSize {
	case 0x28, 0x2C:
		// uid and block sizes live in the header triad instead
		f.headerTriadPresent = true
		f.oldPacketHeaders = true
	default:
		f.uid = c.u32()
		f.blocksize0Pow = c.u8()
		f.blocksize1Pow = c.u8()
	}
	return c.err
}

// Channels returns the channel count.
func (f *File) Channels() uint16 {
	return f.channels
}

// SampleRate returns the sample rate in Hz.
func (f *File) SampleRate() uint32 {
	return f.sampleRate
}

// SampleCount returns the stream length in samples.
func (f *File) SampleCount() uint32 {
	return f.sampleCount
}

// Info returns a human-readable description of the container.
func (f *File) Info() string {
	var b strings.Builder
	if f.littleEndian {
		b.WriteString("RIFF WAVE")
	} else {
		b.WriteString("RIFX WAVE")
	}
	fmt.Fprintf(&b, " %d channel", f.channels)
	if f.channels != 1 {
		b.WriteString("s")
	}
	fmt.Fprintf(&b, " %d Hz %d bps\n", f.sampleRate, f.avgBytesPerSecond*8)
	fmt.Fprintf(&b, "%d samples\n", f.sampleCount)

	if f.loopCount != 0 {
		fmt.Fprintf(&b, "loop from %d to %d\n", f.loopStart, f.loopEnd)
	}

	switch {
	case f.oldPacketHeaders:
		b.WriteString("- 8 byte (old) packet headers\n")
	case f.noGranule:
		b.WriteString("- 2 byte packet headers, no granule\n")
	default:
		b.WriteString("- 6 byte packet headers\n")
	}

	if f.headerTriadPresent {
		b.WriteString("- Vorbis header triad present\n")
	}
	if f.opts.FullSetup || f.headerTriadPresent {
		b.WriteString("- full setup header\n")
	} else {
		b.WriteString("- stripped setup header\n")
	}
	if f.opts.InlineCodebooks || f.headerTriadPresent {
		b.WriteString("- inline codebooks\n")
	}
	if f.modPackets {
		b.WriteString("- modified Vorbis packets\n")
	} else {
		b.WriteString("- standard Vorbis packets\n")
	}
	return b.String()
}
