package bnk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// The number of bytes used to describe the header of a section.
const sectionHeaderBytes = 8

// The number of bytes of the known portion of a BKHD section, excluding its
// own header.
const bankDescriptorBytes = 8

// The number of bytes used to describe a single data index entry (a
// WemDescriptor) within the DIDX section.
const didxEntryBytes = 12

var (
	bkhdHeaderId = [4]byte{'B', 'K', 'H', 'D'}
	didxHeaderId = [4]byte{'D', 'I', 'D', 'X'}
	dataHeaderId = [4]byte{'D', 'A', 'T', 'A'}
	hircHeaderId = [4]byte{'H', 'I', 'R', 'C'}
)

// A Section is one parsed SoundBank section.
type Section interface {
	fmt.Stringer
}

// A SectionHeader introduces a single SoundBank section.
type SectionHeader struct {
	Identifier [4]byte
	Length     uint32
}

// A BankHeaderSection is the BKHD section of a SoundBank.
type BankHeaderSection struct {
	Header     *SectionHeader
	Descriptor BankDescriptor
}

// A BankDescriptor provides metadata about the overall SoundBank.
type BankDescriptor struct {
	Version uint32
	BankId  uint32
}

// A DataIndexSection is the DIDX section of a SoundBank: one descriptor per
// embedded wem, in order of offset into the DATA section.
type DataIndexSection struct {
	Header *SectionHeader
	// All wem IDs, in order of their offset into the file.
	WemIds []uint32
	// A mapping from wem ID to its descriptor.
	DescriptorMap map[uint32]WemDescriptor
}

// A WemDescriptor locates a single wem within the DATA section.
type WemDescriptor struct {
	WemId uint32
	// The number of bytes from the start of the DATA section's data that
	// this wem begins.
	Offset uint32
	// The length in bytes of this wem.
	Length uint32
}

// A DataSection is the DATA section of a SoundBank. Wem payloads are read
// lazily through readers over the underlying file.
type DataSection struct {
	Header *SectionHeader
	// The offset into the file where the data portion of the section
	// begins. This is the location wem entries are stored relative to.
	DataStart uint32
	// A reader per wem in DIDX order.
	readers []*io.SectionReader
}

// An UnknownSection is any section this package does not interpret.
type UnknownSection struct {
	Header *SectionHeader
}

func (hdr *SectionHeader) newBankHeaderSection(sr *io.SectionReader) (*BankHeaderSection, error) {
	sec := &BankHeaderSection{Header: hdr}
	if hdr.Length < bankDescriptorBytes {
		return nil, wwise.NewError(wwise.Malformed, "BKHD section too short (%d bytes)", hdr.Length)
	}
	if err := binary.Read(sr, binary.LittleEndian, &sec.Descriptor); err != nil {
		return nil, wwise.NewError(wwise.Malformed, "BKHD section truncated")
	}
	// the rest of the BKHD is project-specific and skipped
	sr.Seek(int64(hdr.Length-bankDescriptorBytes), io.SeekCurrent)
	return sec, nil
}

func (sec *BankHeaderSection) String() string {
	return fmt.Sprintf("BKHD: len(%d) version(%d) id(%d)\n",
		sec.Header.Length, sec.Descriptor.Version, sec.Descriptor.BankId)
}

func (hdr *SectionHeader) newDataIndexSection(sr *io.SectionReader) (*DataIndexSection, error) {
	if hdr.Length%didxEntryBytes != 0 {
		return nil, wwise.NewError(wwise.Malformed, "DIDX length %d is not a multiple of %d",
			hdr.Length, didxEntryBytes)
	}
	wemCount := int(hdr.Length / didxEntryBytes)
	sec := DataIndexSection{hdr, make([]uint32, 0, wemCount),
		make(map[uint32]WemDescriptor, wemCount)}
	for i := 0; i < wemCount; i++ {
		var desc WemDescriptor
		if err := binary.Read(sr, binary.LittleEndian, &desc); err != nil {
			return nil, wwise.NewError(wwise.Malformed, "DIDX section truncated")
		}
		if _, ok := sec.DescriptorMap[desc.WemId]; ok {
			return nil, wwise.NewError(wwise.Malformed, "repeated wem ID %d in the DIDX", desc.WemId)
		}
		sec.WemIds = append(sec.WemIds, desc.WemId)
		sec.DescriptorMap[desc.WemId] = desc
	}
	return &sec, nil
}

func (sec *DataIndexSection) String() string {
	return fmt.Sprintf("DIDX: len(%d) wems(%d)\n", sec.Header.Length, len(sec.WemIds))
}

func (hdr *SectionHeader) newDataSection(sr *io.SectionReader, idx *DataIndexSection) (*DataSection, error) {
	dataOffset, _ := sr.Seek(0, io.SeekCurrent)
	sec := DataSection{Header: hdr, DataStart: uint32(dataOffset)}

	if idx != nil {
		for _, id := range idx.WemIds {
			desc := idx.DescriptorMap[id]
			if int64(desc.Offset)+int64(desc.Length) > int64(hdr.Length) {
				return nil, wwise.NewError(wwise.Malformed,
					"wem %d extends past the DATA section", id)
			}
			sec.readers = append(sec.readers,
				io.NewSectionReader(sr, dataOffset+int64(desc.Offset), int64(desc.Length)))
		}
	}

	sr.Seek(int64(hdr.Length), io.SeekCurrent)
	return &sec, nil
}

func (sec *DataSection) String() string {
	return fmt.Sprintf("DATA: len(%d)\n", sec.Header.Length)
}

func (hdr *SectionHeader) newUnknownSection(sr *io.SectionReader) (*UnknownSection, error) {
	sr.Seek(int64(hdr.Length), io.SeekCurrent)
	return &UnknownSection{hdr}, nil
}

func (sec *UnknownSection) String() string {
	return fmt.Sprintf("%s: len(%d)\n", string(sec.Header.Identifier[:]), sec.Header.Length)
}
