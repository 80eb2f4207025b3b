package bnk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// The number of bytes used to describe a HIRC object.
const objectDescriptorBytes = 9

// The number of bytes used to describe the ID of a HIRC object.
const objectDescriptorIdBytes = 4

// The identifier for SFX or Voice sound objects.
const soundObjectId = 0x02

// The wem is embedded in the SoundBank rather than streamed from disk.
const streamSettingEmbedded = 0x00

// An ObjectHierarchySection is the HIRC section of a SoundBank. Only the
// sound objects are interpreted, to learn which audio files are streamed
// instead of embedded.
type ObjectHierarchySection struct {
	Header      *SectionHeader
	ObjectCount uint32
	// streamed holds the audio file IDs that sound objects play from disk.
	streamed map[uint32]bool
}

// An objectDescriptor introduces a single object within the HIRC section.
type objectDescriptor struct {
	Type byte
	// The length in bytes of the id and data portion of this object.
	Length   uint32
	ObjectId uint32
}

// A soundObjectDescriptor carries the source properties of an SFX or Voice
// sound object.
type soundObjectDescriptor struct {
	Unknown [4]byte
	// Zero when the wem is embedded in this SoundBank, nonzero when it is
	// streamed from a loose .wem file.
	StreamSetting uint32
	AudioId       uint32
	// The source SoundBank id when embedded, or the audio id when streamed.
	SourceId uint32
}

func (hdr *SectionHeader) newObjectHierarchySection(sr *io.SectionReader) (*ObjectHierarchySection, error) {
	sectionStart, _ := sr.Seek(0, io.SeekCurrent)
	sec := &ObjectHierarchySection{Header: hdr, streamed: make(map[uint32]bool)}

	if err := binary.Read(sr, binary.LittleEndian, &sec.ObjectCount); err != nil {
		return nil, wwise.NewError(wwise.Malformed, "HIRC section truncated")
	}

	for i := uint32(0); i < sec.ObjectCount; i++ {
		var desc objectDescriptor
		if err := binary.Read(sr, binary.LittleEndian, &desc); err != nil {
			return nil, wwise.NewError(wwise.Malformed, "HIRC object %d truncated", i)
		}
		if desc.Length < objectDescriptorIdBytes {
			return nil, wwise.NewError(wwise.Malformed, "HIRC object %d has length %d", i, desc.Length)
		}
		// the descriptor length includes the object ID, already read
		dataLength := int64(desc.Length) - objectDescriptorIdBytes
		dataStart, _ := sr.Seek(0, io.SeekCurrent)

		if desc.Type == soundObjectId {
			var sd soundObjectDescriptor
			if err := binary.Read(sr, binary.LittleEndian, &sd); err != nil {
				return nil, wwise.NewError(wwise.Malformed, "HIRC sound object %d truncated", i)
			}
			if sd.StreamSetting != streamSettingEmbedded {
				sec.streamed[sd.AudioId] = true
			}
		}

		sr.Seek(dataStart+dataLength, io.SeekStart)
	}

	endOffset, _ := sr.Seek(0, io.SeekCurrent)
	if endOffset-sectionStart > int64(hdr.Length) {
		return nil, wwise.NewError(wwise.Malformed, "HIRC objects overflow the section")
	}
	sr.Seek(sectionStart+int64(hdr.Length), io.SeekStart)
	return sec, nil
}

// Streamed reports whether any sound object plays the given audio file ID
// from disk instead of from this SoundBank.
func (sec *ObjectHierarchySection) Streamed(audioId uint32) bool {
	return sec.streamed[audioId]
}

func (sec *ObjectHierarchySection) String() string {
	return fmt.Sprintf("HIRC: len(%d) objects(%d)\n", sec.Header.Length, sec.ObjectCount)
}
