// Package vorbis parses just enough of the Vorbis headers to support
// granule recomputation: the identification packet for block sizes and the
// setup packet for the per-mode block flags that decide which size an audio
// packet uses.
package vorbis

import (
	"bytes"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/bitstream"
	"github.com/tnt-coders/wwise-audio-tools/codebook"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// Info holds the header fields needed to size audio packets.
type Info struct {
	Channels   uint8
	SampleRate uint32

	// Blocksize[0] is the short block size in samples, Blocksize[1] the
	// long one.
	Blocksize [2]uint32

	modeBlockflags []bool
	modeBits       uint
}

// Parse extracts an Info from the identification and setup header packets.
func Parse(ident, setup []byte) (*Info, error) {
	info := &Info{}
	if err := info.parseIdent(ident); err != nil {
		return nil, err
	}
	if err := info.parseSetup(setup); err != nil {
		return nil, err
	}
	return info, nil
}

// CheckComment verifies that packet looks like a comment header. The
// contents are not interpreted.
func CheckComment(packet []byte) error {
	return checkHeaderType(packet, 3)
}

func checkHeaderType(packet []byte, packetType byte) error {
	if len(packet) < 7 || packet[0] != packetType || string(packet[1:7]) != "vorbis" {
		return wwise.NewError(wwise.Malformed, "not a type %d Vorbis header", packetType)
	}
	return nil
}

func (info *Info) parseIdent(packet []byte) error {
	if err := checkHeaderType(packet, 1); err != nil {
		return err
	}
	r := bitstream.NewReader(bytes.NewReader(packet[7:]))

	if version := r.ReadUint(32); version != 0 {
		return wwise.NewError(wwise.Unsupported, "Vorbis version %d", version)
	}
	info.Channels = uint8(r.ReadUint(8))
	info.SampleRate = r.ReadUint(32)
	r.ReadUint(32) // bitrate maximum
	r.ReadUint(32) // bitrate nominal
	r.ReadUint(32) // bitrate minimum
	blocksize0 := r.ReadUint(4)
	blocksize1 := r.ReadUint(4)
	framing := r.ReadBit()
	if err := r.Err(); err != nil {
		return err
	}

	if info.Channels == 0 || info.SampleRate == 0 {
		return wwise.NewError(wwise.Malformed, "identification header with zero channels or rate")
	}
	if blocksize0 < 6 || blocksize0 > 13 || blocksize1 < blocksize0 || blocksize1 > 13 || !framing {
		return wwise.NewError(wwise.Malformed, "bad block sizes in identification header")
	}
	info.Blocksize[0] = 1 << blocksize0
	info.Blocksize[1] = 1 << blocksize1
	return nil
}

// parseSetup walks the whole setup header. Everything before the modes is
// parsed only to keep the bit position aligned; the mode block flags at the
// end are what granule recomputation needs.
func (info *Info) parseSetup(packet []byte) error {
	if err := checkHeaderType(packet, 5); err != nil {
		return err
	}
	r := bitstream.NewReader(bytes.NewReader(packet[7:]))

	// codebooks, copied into a discarded stream to advance the reader
	discard := bitstream.NewWriter(io.Discard)
	codebookCount := r.ReadUint(8) + 1
	for i := uint32(0); i < codebookCount; i++ {
		if err := codebook.Copy(r, discard); err != nil {
			return err
		}
		if err := discard.FlushPage(false, false); err != nil {
			return err
		}
	}

	timeCount := r.ReadUint(6) + 1
	for i := uint32(0); i < timeCount; i++ {
		if t := r.ReadUint(16); t != 0 && r.Err() == nil {
			return wwise.NewError(wwise.Malformed, "nonzero time transform %d", t)
		}
	}

	if err := info.skipFloors(r); err != nil {
		return err
	}
	if err := info.skipResidues(r); err != nil {
		return err
	}
	if err := info.skipMappings(r); err != nil {
		return err
	}

	modeCount := r.ReadUint(6) + 1
	info.modeBits = codebook.Ilog(modeCount - 1)
	info.modeBlockflags = make([]bool, modeCount)
	for i := uint32(0); i < modeCount; i++ {
		info.modeBlockflags[i] = r.ReadBit()
		if windowType := r.ReadUint(16); windowType != 0 && r.Err() == nil {
			return wwise.NewError(wwise.Unsupported, "nonzero window type %d", windowType)
		}
		if transformType := r.ReadUint(16); transformType != 0 && r.Err() == nil {
			return wwise.NewError(wwise.Unsupported, "nonzero transform type %d", transformType)
		}
		r.ReadUint(8) // mapping number
	}
	if framing := r.ReadBit(); !framing && r.Err() == nil {
		return wwise.NewError(wwise.Malformed, "missing setup framing bit")
	}
	return r.Err()
}

func (info *Info) skipFloors(r *bitstream.Reader) error {
	floorCount := r.ReadUint(6) + 1
	for i := uint32(0); i < floorCount; i++ {
		switch floorType := r.ReadUint(16); floorType {
		case 0:
			r.ReadUint(8)  // order
			r.ReadUint(16) // rate
			r.ReadUint(16) // bark map size
			r.ReadUint(6)  // amplitude bits
			r.ReadUint(8)  // amplitude offset
			numberOfBooks := r.ReadUint(4) + 1
			for j := uint32(0); j < numberOfBooks; j++ {
				r.ReadUint(8)
			}
		case 1:
			partitions := r.ReadUint(5)
			maxClass := -1
			classes := make([]uint32, partitions)
			for j := range classes {
				classes[j] = r.ReadUint(4)
				if int(classes[j]) > maxClass {
					maxClass = int(classes[j])
				}
			}
			classDims := make([]uint32, maxClass+1)
			for j := 0; j <= maxClass; j++ {
				classDims[j] = r.ReadUint(3) + 1
				subclasses := r.ReadUint(2)
				if subclasses != 0 {
					r.ReadUint(8) // masterbook
				}
				for k := uint32(0); k < 1<<subclasses; k++ {
					r.ReadUint(8) // subclass book
				}
			}
			r.ReadUint(2) // multiplier
			rangebits := uint(r.ReadUint(4))
			if err := r.Err(); err != nil {
				return err
			}
			for j := uint32(0); j < partitions; j++ {
				for k := uint32(0); k < classDims[classes[j]]; k++ {
					r.ReadUint(rangebits)
				}
			}
		default:
			return wwise.NewError(wwise.Unsupported, "floor type %d", floorType)
		}
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (info *Info) skipResidues(r *bitstream.Reader) error {
	residueCount := r.ReadUint(6) + 1
	for i := uint32(0); i < residueCount; i++ {
		if residueType := r.ReadUint(16); residueType > 2 && r.Err() == nil {
			return wwise.NewError(wwise.Unsupported, "residue type %d", residueType)
		}
		r.ReadUint(24) // begin
		r.ReadUint(24) // end
		r.ReadUint(24) // partition size
		classifications := r.ReadUint(6) + 1
		r.ReadUint(8) // classbook
		if err := r.Err(); err != nil {
			return err
		}

		cascades := make([]uint32, classifications)
		for j := range cascades {
			low := r.ReadUint(3)
			high := uint32(0)
			if r.ReadBit() {
				high = r.ReadUint(5)
			}
			cascades[j] = high<<3 | low
		}
		for _, cascade := range cascades {
			for k := uint(0); k < 8; k++ {
				if cascade&(1<<k) != 0 {
					r.ReadUint(8) // residue book
				}
			}
		}
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (info *Info) skipMappings(r *bitstream.Reader) error {
	mappingCount := r.ReadUint(6) + 1
	for i := uint32(0); i < mappingCount; i++ {
		if mappingType := r.ReadUint(16); mappingType != 0 && r.Err() == nil {
			return wwise.NewError(wwise.Unsupported, "mapping type %d", mappingType)
		}
		submaps := uint32(1)
		if r.ReadBit() {
			submaps = r.ReadUint(4) + 1
		}
		if r.ReadBit() {
			couplingSteps := r.ReadUint(8) + 1
			couplingBits := codebook.Ilog(uint32(info.Channels) - 1)
			for j := uint32(0); j < couplingSteps; j++ {
				r.ReadUint(couplingBits) // magnitude
				r.ReadUint(couplingBits) // angle
			}
		}
		if reserved := r.ReadUint(2); reserved != 0 && r.Err() == nil {
			return wwise.NewError(wwise.Malformed, "nonzero mapping reserved field")
		}
		if submaps > 1 {
			for j := uint8(0); j < info.Channels; j++ {
				r.ReadUint(4) // mux
			}
		}
		for j := uint32(0); j < submaps; j++ {
			r.ReadUint(8) // time configuration placeholder
			r.ReadUint(8) // floor number
			r.ReadUint(8) // residue number
		}
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

// PacketBlocksize returns the block size in samples of one audio packet.
func (info *Info) PacketBlocksize(packet []byte) (uint32, error) {
	if len(packet) == 0 {
		return 0, wwise.NewError(wwise.Malformed, "empty audio packet")
	}
	r := bitstream.NewReader(bytes.NewReader(packet))
	if r.ReadBit() {
		return 0, wwise.NewError(wwise.Malformed, "header packet where audio was expected")
	}
	mode := r.ReadUint(info.modeBits)
	if err := r.Err(); err != nil {
		return 0, err
	}
	if int(mode) >= len(info.modeBlockflags) {
		return 0, wwise.NewError(wwise.InvalidRef, "mode number %d out of range", mode)
	}
	if info.modeBlockflags[mode] {
		return info.Blocksize[1], nil
	}
	return info.Blocksize[0], nil
}
