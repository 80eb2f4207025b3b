// Package bnk implements read access to the Wwise SoundBank file format,
// enough to extract the wems a SoundBank embeds and to tell which of its
// sounds are streamed from loose wem files instead.
package bnk

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// A File represents an open Wwise SoundBank.
type File struct {
	closer io.Closer
	// The sections of this SoundBank, in the order they appear in the file.
	sections      []Section
	BankHeader    *BankHeaderSection
	Index         *DataIndexSection
	Data          *DataSection
	ObjectSection *ObjectHierarchySection
}

// NewFile creates a new File for accessing Wwise SoundBank files. The file
// is expected to start at position 0 in the io.ReaderAt.
func NewFile(r io.ReaderAt) (*File, error) {
	bnk := new(File)

	sr := io.NewSectionReader(r, 0, math.MaxInt64)
	for {
		hdr := new(SectionHeader)
		err := binary.Read(sr, binary.LittleEndian, hdr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wwise.NewError(wwise.Malformed, "section header truncated")
		}

		var sec Section
		switch hdr.Identifier {
		case bkhdHeaderId:
			bnk.BankHeader, err = hdr.newBankHeaderSection(sr)
			sec = bnk.BankHeader
		case didxHeaderId:
			bnk.Index, err = hdr.newDataIndexSection(sr)
			sec = bnk.Index
		case dataHeaderId:
			bnk.Data, err = hdr.newDataSection(sr, bnk.Index)
			sec = bnk.Data
		case hircHeaderId:
			bnk.ObjectSection, err = hdr.newObjectHierarchySection(sr)
			sec = bnk.ObjectSection
		default:
			sec, err = hdr.newUnknownSection(sr)
		}
		if err != nil {
			return nil, err
		}
		bnk.sections = append(bnk.sections, sec)
	}

	if bnk.BankHeader == nil {
		return nil, wwise.NewError(wwise.Malformed, "missing BKHD section")
	}
	return bnk, nil
}

// Open opens the File at the specified path using os.Open and prepares it
// for use as a Wwise SoundBank file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	bnk, err := NewFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	bnk.closer = f
	return bnk, nil
}

// Close closes the File.
// If the File was created using NewFile directly instead of Open, Close has
// no effect.
func (bnk *File) Close() error {
	var err error
	if bnk.closer != nil {
		err = bnk.closer.Close()
		bnk.closer = nil
	}
	return err
}

// Version returns the bank generator version from the BKHD section.
func (bnk *File) Version() uint32 {
	return bnk.BankHeader.Descriptor.Version
}

// BankId returns the bank's own ID from the BKHD section.
func (bnk *File) BankId() uint32 {
	return bnk.BankHeader.Descriptor.BankId
}

// WemCount returns the number of wems embedded in this SoundBank.
func (bnk *File) WemCount() int {
	if bnk.Index == nil {
		return 0
	}
	return len(bnk.Index.WemIds)
}

// Extract reads every embedded wem out of the SoundBank, in DIDX order.
// Wems whose sound objects stream from disk are flagged; their data is the
// embedded prefetch stub and the full audio lives in a loose <id>.wem.
func (bnk *File) Extract() ([]wwise.BnkWem, error) {
	if bnk.Index == nil || bnk.Data == nil || len(bnk.Index.WemIds) == 0 {
		return nil, wwise.NewError(wwise.Malformed, "there are no wems stored within this file")
	}

	wems := make([]wwise.BnkWem, 0, len(bnk.Index.WemIds))
	for i, id := range bnk.Index.WemIds {
		data, err := io.ReadAll(bnk.Data.readers[i])
		if err != nil {
			return nil, wwise.NewError(wwise.Malformed, "wem %d truncated", id)
		}
		streamed := bnk.ObjectSection != nil && bnk.ObjectSection.Streamed(id)
		wems = append(wems, wwise.BnkWem{Id: id, Streamed: streamed, Data: data})
	}
	return wems, nil
}

func (bnk *File) String() string {
	b := new(strings.Builder)
	for _, sec := range bnk.sections {
		b.WriteString(sec.String())
	}

	if bnk.Index != nil {
		tableParams := []string{"%-7", "%-15", "%-15", "%-15", "\n"}
		titleFmt := strings.Join(tableParams, "s|")
		wemFmt := strings.Join(tableParams, "d|")
		title := fmt.Sprintf(titleFmt, "Index", "Id", "Offset", "Length")
		fmt.Fprint(b, title)
		fmt.Fprintln(b, strings.Repeat("-", len(title)-1))

		for i, id := range bnk.Index.WemIds {
			desc := bnk.Index.DescriptorMap[id]
			fmt.Fprintf(b, wemFmt, i+1, desc.WemId, desc.Offset, desc.Length)
		}
	}
	return b.String()
}
