package wem

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/bitstream"
	"github.com/tnt-coders/wwise-audio-tools/codebook"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// vendor is the comment-header vendor string identifying converted output.
const vendor = "converted from Audiokinetic Wwise by ww2ogg 0.24"

func writeVorbisHeader(w *bitstream.Writer, packetType uint32) {
	w.WriteUint(packetType, 8)
	for _, ch := range []byte("vorbis") {
		w.WriteUint(uint32(ch), 8)
	}
}

// GenerateOgg writes the file's audio as a complete Ogg Vorbis stream: the
// three header packets first (rebuilt, or copied from the header triad when
// one is present), then one page per audio packet. The granules it emits
// are the raw ones from the packet headers; run the revorb pass afterwards
// to make them accurate.
func (f *File) GenerateOgg(w io.Writer) error {
	os := bitstream.NewWriter(w)

	var modeBlockflags []bool
	var modeBits uint
	prevBlockflag := false

	if f.headerTriadPresent {
		if err := f.generateHeaderTriad(os); err != nil {
			return err
		}
	} else {
		var err error
		modeBlockflags, modeBits, err = f.generateHeader(os)
		if err != nil {
			return err
		}
	}

	dataEnd := f.dataOffset + f.dataSize
	offset := f.dataOffset + int(f.firstAudioPacketOffset)

	for offset < dataEnd {
		audio, err := f.readAudioPacket(offset)
		if err != nil {
			return err
		}
		if offset+audio.headerSize() > dataEnd {
			return wwise.NewError(wwise.Malformed, "page header truncated")
		}
		payloadOffset := audio.payloadOffset()
		nextOffset := audio.nextOffset()
		if nextOffset > len(f.data) {
			return wwise.NewError(wwise.Malformed, "file truncated")
		}

		// the granule placeholder would produce a page at position -1;
		// map it to 1 so players treat the page as audio
		if audio.granule == 0xFFFFFFFF {
			os.SetGranule(1)
		} else {
			os.SetGranule(audio.granule)
		}

		payload := f.data[payloadOffset:nextOffset]
		if f.modPackets {
			if len(modeBlockflags) == 0 {
				return wwise.NewError(wwise.Malformed, "didn't load mode blockflags")
			}
			if len(payload) == 0 {
				return wwise.NewError(wwise.Malformed, "empty modified packet")
			}

			// packet type: audio
			os.WriteBit(false)

			in := bitstream.NewReader(bytes.NewReader(payload))
			modeNumber := in.ReadUint(modeBits)
			remainder := in.ReadUint(8 - modeBits)
			if err := in.Err(); err != nil {
				return err
			}
			if int(modeNumber) >= len(modeBlockflags) {
				return wwise.NewError(wwise.InvalidRef, "mode number %d out of range", modeNumber)
			}
			os.WriteUint(modeNumber, modeBits)

			if modeBlockflags[modeNumber] {
				// long window: the flag bits depend on the neighboring
				// windows, so peek at the next packet's mode
				nextBlockflag := false
				if nextOffset+audio.headerSize() <= dataEnd {
					next, err := f.readAudioPacket(nextOffset)
					if err != nil {
						return err
					}
					if next.size > 0 {
						if next.payloadOffset() >= len(f.data) {
							return wwise.NewError(wwise.Malformed, "file truncated")
						}
						peek := bitstream.NewReader(bytes.NewReader(f.data[next.payloadOffset():]))
						nextMode := peek.ReadUint(modeBits)
						if err := peek.Err(); err != nil {
							return err
						}
						if int(nextMode) >= len(modeBlockflags) {
							return wwise.NewError(wwise.InvalidRef, "mode number %d out of range", nextMode)
						}
						nextBlockflag = modeBlockflags[nextMode]
					}
				}
				os.WriteBit(prevBlockflag)
				os.WriteBit(nextBlockflag)
			}
			prevBlockflag = modeBlockflags[modeNumber]

			os.WriteUint(remainder, 8-modeBits)
			for _, b := range payload[1:] {
				os.WriteUint(uint32(b), 8)
			}
		} else {
			if len(payload) == 0 {
				return wwise.NewError(wwise.Malformed, "empty audio packet")
			}
			for _, b := range payload {
				os.WriteUint(uint32(b), 8)
			}
		}

		offset = nextOffset
		if err := os.FlushPage(false, offset == dataEnd); err != nil {
			return err
		}
	}
	if offset > dataEnd {
		return wwise.NewError(wwise.Malformed, "page truncated")
	}
	return os.Err()
}

func (f *File) readAudioPacket(offset int) (packet, error) {
	format := headerStandard6
	if f.oldPacketHeaders {
		format = headerLegacy8
	} else if f.noGranule {
		format = headerNoGranule2
	}
	return readPacket(f.data, offset, f.order, format)
}

// generateHeader rebuilds the three Vorbis header packets that Wwise
// strips, one page each. It returns the mode block flags and mode bit width
// recovered from the setup data, which modified audio packets need.
func (f *File) generateHeader(os *bitstream.Writer) ([]bool, uint, error) {
	// identification packet
	writeVorbisHeader(os, 1)
	os.WriteUint(0, 32) // version
	os.WriteUint(uint32(f.channels), 8)
	os.WriteUint(f.sampleRate, 32)
	os.WriteUint(0, 32) // bitrate maximum
	os.WriteUint(f.avgBytesPerSecond*8, 32)
	os.WriteUint(0, 32) // bitrate minimum
	os.WriteUint(uint32(f.blocksize0Pow), 4)
	os.WriteUint(uint32(f.blocksize1Pow), 4)
	os.WriteBit(true) // framing
	if err := os.FlushPage(false, false); err != nil {
		return nil, 0, err
	}

	// comment packet
	writeVorbisHeader(os, 3)
	os.WriteUint(uint32(len(vendor)), 32)
	for _, ch := range []byte(vendor) {
		os.WriteUint(uint32(ch), 8)
	}
	if f.loopCount == 0 {
		os.WriteUint(0, 32)
	} else {
		os.WriteUint(2, 32)
		for _, comment := range []string{
			fmt.Sprintf("LoopStart=%d", f.loopStart),
			fmt.Sprintf("LoopEnd=%d", f.loopEnd),
		} {
			os.WriteUint(uint32(len(comment)), 32)
			for _, ch := range []byte(comment) {
				os.WriteUint(uint32(ch), 8)
			}
		}
	}
	os.WriteBit(true) // framing
	if err := os.FlushPage(false, false); err != nil {
		return nil, 0, err
	}

	// setup packet
	writeVorbisHeader(os, 5)

	format := headerStandard6
	if f.noGranule {
		format = headerNoGranule2
	}
	setup, err := readPacket(f.data, f.dataOffset+int(f.setupPacketOffset), f.order, format)
	if err != nil {
		return nil, 0, err
	}
	if setup.granule != 0 {
		return nil, 0, wwise.NewError(wwise.Malformed, "setup packet granule != 0")
	}
	if setup.nextOffset() > len(f.data) {
		return nil, 0, wwise.NewError(wwise.Malformed, "setup packet truncated")
	}

	ss := bitstream.NewReader(bytes.NewReader(f.data[setup.payloadOffset():]))

	codebookCountLess1 := ss.ReadUint(8)
	codebookCount := codebookCountLess1 + 1
	os.WriteUint(codebookCountLess1, 8)

	if f.opts.InlineCodebooks {
		for i := uint32(0); i < codebookCount; i++ {
			if f.opts.FullSetup {
				err = codebook.Copy(ss, os)
			} else {
				err = codebook.Rebuild(ss, 0, os)
			}
			if err != nil {
				return nil, 0, err
			}
		}
	} else {
		var lib *codebook.Library
		if len(f.opts.CodebookData) > 0 {
			lib, err = codebook.NewLibrary(f.opts.CodebookData)
			if err != nil {
				return nil, 0, err
			}
		}
		for i := uint32(0); i < codebookCount; i++ {
			codebookID := ss.ReadUint(10)
			if err := ss.Err(); err != nil {
				return nil, 0, err
			}
			if err := lib.Rebuild(int(codebookID), os); err != nil {
				if wwise.IsKind(err, wwise.InvalidRef) && codebookID == 0x342 {
					if ss.ReadUint(14) == 0x1590 && ss.Err() == nil {
						// 0x342,0x1590 spells out the start of a standard
						// codebook identifier
						return nil, 0, wwise.NewError(wwise.Malformed,
							"invalid codebook id 0x342, try full setup")
					}
				}
				return nil, 0, err
			}
		}
	}

	// time domain transform placeholder
	os.WriteUint(0, 6)
	os.WriteUint(0, 16)

	var modeBlockflags []bool
	var modeBits uint
	if f.opts.FullSetup {
		for ss.TotalBitsRead() < uint64(setup.size)*8 {
			os.WriteBit(ss.ReadBit())
			if err := ss.Err(); err != nil {
				return nil, 0, err
			}
		}
	} else {
		modeBlockflags, modeBits, err = f.rebuildSetup(ss, os, codebookCount)
		if err != nil {
			return nil, 0, err
		}
	}
	if err := os.FlushPage(false, false); err != nil {
		return nil, 0, err
	}

	if (ss.TotalBitsRead()+7)/8 != uint64(setup.size) {
		return nil, 0, wwise.NewError(wwise.Malformed, "didn't read exactly setup packet")
	}
	if setup.nextOffset() != f.dataOffset+int(f.firstAudioPacketOffset) {
		return nil, 0, wwise.NewError(wwise.Malformed, "first audio packet doesn't follow setup packet")
	}
	return modeBlockflags, modeBits, nil
}

// rebuildSetup widens the compact floor, residue, mapping and mode
// definitions to standard Vorbis form.
func (f *File) rebuildSetup(ss *bitstream.Reader, os *bitstream.Writer, codebookCount uint32) ([]bool, uint, error) {
	floorCountLess1 := ss.ReadUint(6)
	floorCount := floorCountLess1 + 1
	os.WriteUint(floorCountLess1, 6)

	for i := uint32(0); i < floorCount; i++ {
		// Wwise only uses floor type 1 and drops the field
		os.WriteUint(1, 16)

		partitions := ss.ReadUint(5)
		os.WriteUint(partitions, 5)

		classList := make([]uint32, partitions)
		maxClass := -1
		for j := range classList {
			class := ss.ReadUint(4)
			os.WriteUint(class, 4)
			classList[j] = class
			if int(class) > maxClass {
				maxClass = int(class)
			}
		}

		classDims := make([]uint32, maxClass+1)
		for j := 0; j <= maxClass; j++ {
			dimsLess1 := ss.ReadUint(3)
			os.WriteUint(dimsLess1, 3)
			classDims[j] = dimsLess1 + 1

			subclasses := ss.ReadUint(2)
			os.WriteUint(subclasses, 2)

			if subclasses != 0 {
				masterbook := ss.ReadUint(8)
				os.WriteUint(masterbook, 8)
				if ss.Err() == nil && masterbook >= codebookCount {
					return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid floor1 masterbook")
				}
			}
			for k := uint32(0); k < 1<<subclasses; k++ {
				bookPlus1 := ss.ReadUint(8)
				os.WriteUint(bookPlus1, 8)
				if ss.Err() == nil && bookPlus1 > codebookCount {
					return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid floor1 subclass book")
				}
			}
		}

		os.WriteUint(ss.ReadUint(2), 2) // multiplier - 1
		rangebits := ss.ReadUint(4)
		os.WriteUint(rangebits, 4)
		if err := ss.Err(); err != nil {
			return nil, 0, err
		}

		for j := uint32(0); j < partitions; j++ {
			for k := uint32(0); k < classDims[classList[j]]; k++ {
				os.WriteUint(ss.ReadUint(uint(rangebits)), uint(rangebits))
			}
		}
		if err := ss.Err(); err != nil {
			return nil, 0, err
		}
	}

	residueCountLess1 := ss.ReadUint(6)
	residueCount := residueCountLess1 + 1
	os.WriteUint(residueCountLess1, 6)

	for i := uint32(0); i < residueCount; i++ {
		residueType := ss.ReadUint(2)
		os.WriteUint(residueType, 16)
		if ss.Err() == nil && residueType > 2 {
			return nil, 0, wwise.NewError(wwise.Unsupported, "invalid residue type %d", residueType)
		}

		os.WriteUint(ss.ReadUint(24), 24) // begin
		os.WriteUint(ss.ReadUint(24), 24) // end
		os.WriteUint(ss.ReadUint(24), 24) // partition size - 1
		classificationsLess1 := ss.ReadUint(6)
		classifications := classificationsLess1 + 1
		os.WriteUint(classificationsLess1, 6)
		classbook := ss.ReadUint(8)
		os.WriteUint(classbook, 8)
		if err := ss.Err(); err != nil {
			return nil, 0, err
		}
		if classbook >= codebookCount {
			return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid residue classbook")
		}

		cascades := make([]uint32, classifications)
		for j := range cascades {
			low := ss.ReadUint(3)
			os.WriteUint(low, 3)
			high := uint32(0)
			if flag := ss.ReadBit(); flag {
				os.WriteBit(true)
				high = ss.ReadUint(5)
				os.WriteUint(high, 5)
			} else {
				os.WriteBit(false)
			}
			cascades[j] = high*8 + low
		}
		for _, cascade := range cascades {
			for k := uint(0); k < 8; k++ {
				if cascade&(1<<k) != 0 {
					book := ss.ReadUint(8)
					os.WriteUint(book, 8)
					if ss.Err() == nil && book >= codebookCount {
						return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid residue book")
					}
				}
			}
		}
		if err := ss.Err(); err != nil {
			return nil, 0, err
		}
	}

	mappingCountLess1 := ss.ReadUint(6)
	mappingCount := mappingCountLess1 + 1
	os.WriteUint(mappingCountLess1, 6)

	for i := uint32(0); i < mappingCount; i++ {
		// always mapping type 0, the only one
		os.WriteUint(0, 16)

		submaps := uint32(1)
		if flag := ss.ReadBit(); flag {
			os.WriteBit(true)
			submapsLess1 := ss.ReadUint(4)
			os.WriteUint(submapsLess1, 4)
			submaps = submapsLess1 + 1
		} else {
			os.WriteBit(false)
		}

		if squarePolar := ss.ReadBit(); squarePolar {
			os.WriteBit(true)
			couplingStepsLess1 := ss.ReadUint(8)
			os.WriteUint(couplingStepsLess1, 8)
			couplingBits := codebook.Ilog(uint32(f.channels) - 1)
			for j := uint32(0); j <= couplingStepsLess1; j++ {
				magnitude := ss.ReadUint(couplingBits)
				angle := ss.ReadUint(couplingBits)
				os.WriteUint(magnitude, couplingBits)
				os.WriteUint(angle, couplingBits)
				if err := ss.Err(); err != nil {
					return nil, 0, err
				}
				if angle == magnitude || magnitude >= uint32(f.channels) || angle >= uint32(f.channels) {
					return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid coupling")
				}
			}
		} else {
			os.WriteBit(false)
		}

		// a rare reserved field not removed by Wwise
		reserved := ss.ReadUint(2)
		os.WriteUint(reserved, 2)
		if ss.Err() == nil && reserved != 0 {
			return nil, 0, wwise.NewError(wwise.Malformed, "mapping reserved field nonzero")
		}

		if submaps > 1 {
			for j := uint16(0); j < f.channels; j++ {
				mux := ss.ReadUint(4)
				os.WriteUint(mux, 4)
				if ss.Err() == nil && mux >= submaps {
					return nil, 0, wwise.NewError(wwise.InvalidRef, "mapping mux out of range")
				}
			}
		}

		for j := uint32(0); j < submaps; j++ {
			os.WriteUint(ss.ReadUint(8), 8) // time configuration placeholder
			floorNumber := ss.ReadUint(8)
			os.WriteUint(floorNumber, 8)
			residueNumber := ss.ReadUint(8)
			os.WriteUint(residueNumber, 8)
			if err := ss.Err(); err != nil {
				return nil, 0, err
			}
			if floorNumber >= floorCount {
				return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid floor mapping")
			}
			if residueNumber >= residueCount {
				return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid residue mapping")
			}
		}
	}

	modeCountLess1 := ss.ReadUint(6)
	modeCount := modeCountLess1 + 1
	os.WriteUint(modeCountLess1, 6)

	modeBlockflags := make([]bool, modeCount)
	modeBits := codebook.Ilog(modeCount - 1)

	for i := uint32(0); i < modeCount; i++ {
		blockflag := ss.ReadBit()
		os.WriteBit(blockflag)
		modeBlockflags[i] = blockflag

		// only zero is valid for window and transform type
		os.WriteUint(0, 16)
		os.WriteUint(0, 16)

		mapping := ss.ReadUint(8)
		os.WriteUint(mapping, 8)
		if err := ss.Err(); err != nil {
			return nil, 0, err
		}
		if mapping >= mappingCount {
			return nil, 0, wwise.NewError(wwise.InvalidRef, "invalid mode mapping")
		}
	}
	os.WriteBit(true) // framing

	if err := ss.Err(); err != nil {
		return nil, 0, err
	}
	return modeBlockflags, modeBits, nil
}

// generateHeaderTriad copies the identification, comment and setup packets
// that old-style files keep in the data chunk, re-paginating them. The
// setup codebooks are already standard, so they pass through Copy only to
// keep the bit cursor honest.
func (f *File) generateHeaderTriad(os *bitstream.Writer) error {
	offset := f.dataOffset + int(f.setupPacketOffset)

	for _, packetType := range []uint32{1, 3} {
		p, err := readPacket(f.data, offset, f.order, headerLegacy8)
		if err != nil {
			return err
		}
		if p.granule != 0 {
			return wwise.NewError(wwise.Malformed, "header packet granule != 0")
		}
		if p.nextOffset() > len(f.data) || p.size == 0 {
			return wwise.NewError(wwise.Malformed, "header packet truncated")
		}
		payload := f.data[p.payloadOffset():p.nextOffset()]
		if uint32(payload[0]) != packetType {
			return wwise.NewError(wwise.Malformed, "wrong type %d for header packet", payload[0])
		}
		for _, b := range payload {
			os.WriteUint(uint32(b), 8)
		}
		if err := os.FlushPage(false, false); err != nil {
			return err
		}
		offset = p.nextOffset()
	}

	setup, err := readPacket(f.data, offset, f.order, headerLegacy8)
	if err != nil {
		return err
	}
	if setup.granule != 0 {
		return wwise.NewError(wwise.Malformed, "setup packet granule != 0")
	}
	if setup.nextOffset() > len(f.data) {
		return wwise.NewError(wwise.Malformed, "setup packet truncated")
	}

	ss := bitstream.NewReader(bytes.NewReader(f.data[setup.payloadOffset():setup.nextOffset()]))
	packetType := ss.ReadUint(8)
	if err := ss.Err(); err != nil {
		return err
	}
	if packetType != 5 {
		return wwise.NewError(wwise.Malformed, "wrong type %d for setup packet", packetType)
	}
	os.WriteUint(packetType, 8)
	for i := 0; i < 6; i++ {
		os.WriteUint(ss.ReadUint(8), 8)
	}

	codebookCountLess1 := ss.ReadUint(8)
	if err := ss.Err(); err != nil {
		return err
	}
	os.WriteUint(codebookCountLess1, 8)
	for i := uint32(0); i <= codebookCountLess1; i++ {
		if err := codebook.Copy(ss, os); err != nil {
			return err
		}
	}

	for ss.TotalBitsRead() < uint64(setup.size)*8 {
		os.WriteBit(ss.ReadBit())
		if err := ss.Err(); err != nil {
			return err
		}
	}
	if err := os.FlushPage(false, false); err != nil {
		return err
	}

	if setup.nextOffset() != f.dataOffset+int(f.firstAudioPacketOffset) {
		return wwise.NewError(wwise.Malformed, "first audio packet doesn't follow setup packet")
	}
	return nil
}
