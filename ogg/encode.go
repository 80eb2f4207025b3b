package ogg

import (
	"encoding/binary"
	"io"
)

// nominalFill is the page body size the packer aims for before it is
// willing to close a page on its own.
const nominalFill = 4096

// A Page is a finished page ready to be written out. Header and Body alias
// the owning Stream's buffers and are valid until the next Stream call.
type Page struct {
	Header []byte
	Body   []byte
}

// WriteTo writes the page to w.
func (p Page) WriteTo(w io.Writer) error {
	if _, err := w.Write(p.Header); err != nil {
		return err
	}
	_, err := w.Write(p.Body)
	return err
}

// A Stream packs submitted packets into pages following libogg's framing
// rules: the first page carries only the first packet, later pages are
// closed once they pass the nominal fill with at least four whole packets,
// or when the segment table runs out.
type Stream struct {
	serial uint32

	body         []byte
	bodyReturned int

	// per-segment lacing values; bit 0x100 marks the first segment of a
	// packet, low byte is the segment length
	lacing   []int
	granules []int64

	granule  int64
	pageNo   uint32
	packetNo int64

	firstPageDone bool
	eos           bool

	header [HeaderSize + MaxSegments]byte
}

// NewStream returns a packer for a logical stream with the given serial
// number.
func NewStream(serial uint32) *Stream {
	return &Stream{serial: serial}
}

// PacketIn submits a packet with its granule position. Marking a packet
// last sets the last-page flag on the page that completes it.
func (s *Stream) PacketIn(data []byte, granule int64, last bool) {
	if s.bodyReturned > 0 {
		s.body = append(s.body[:0], s.body[s.bodyReturned:]...)
		s.bodyReturned = 0
	}
	s.body = append(s.body, data...)

	segments := len(data)/255 + 1
	for i := 0; i < segments-1; i++ {
		s.lacing = append(s.lacing, 255)
		s.granules = append(s.granules, s.granule)
	}
	s.lacing = append(s.lacing, len(data)%255)
	s.granules = append(s.granules, granule)
	s.granule = granule
	s.lacing[len(s.lacing)-segments] |= 0x100

	s.packetNo++
	if last {
		s.eos = true
	}
}

// PageOut emits the next page if the buffered packets call for one. The
// second return is false when nothing is ready yet.
func (s *Stream) PageOut() (Page, bool) {
	force := false
	if len(s.lacing) != 0 && (s.eos || !s.firstPageDone) {
		force = true
	}
	return s.flush(force)
}

// Flush emits a page from whatever is buffered, even if undersized. Call it
// repeatedly until the second return is false to drain the stream.
func (s *Stream) Flush() (Page, bool) {
	return s.flush(true)
}

func (s *Stream) flush(force bool) (Page, bool) {
	maxvals := len(s.lacing)
	if maxvals > MaxSegments {
		maxvals = MaxSegments
	}
	if maxvals == 0 {
		return Page{}, false
	}

	var vals int
	granule := int64(-1)

	if !s.firstPageDone {
		// the first page must carry only the first packet
		granule = 0
		for vals = 0; vals < maxvals; vals++ {
			if s.lacing[vals]&0xff < 255 {
				vals++
				break
			}
		}
	} else {
		acc := 0
		packetsDone := 0
		packetJustDone := 0
		for vals = 0; vals < maxvals; vals++ {
			if acc > nominalFill && packetJustDone >= 4 {
				force = true
				break
			}
			acc += s.lacing[vals] & 0xff
			if s.lacing[vals]&0xff < 255 {
				granule = s.granules[vals]
				packetsDone++
				packetJustDone = packetsDone
			} else {
				packetJustDone = 0
			}
		}
		if vals == MaxSegments {
			force = true
		}
	}

	if !force {
		return Page{}, false
	}

	h := s.header[:]
	copy(h[0:4], "OggS")
	h[4] = 0

	h[5] = 0
	if s.lacing[0]&0x100 == 0 {
		h[5] |= FlagContinued
	}
	if !s.firstPageDone {
		h[5] |= FlagFirst
	}
	if s.eos && len(s.lacing) == vals {
		h[5] |= FlagLast
	}
	s.firstPageDone = true

	binary.LittleEndian.PutUint64(h[6:14], uint64(granule))
	binary.LittleEndian.PutUint32(h[14:18], s.serial)
	binary.LittleEndian.PutUint32(h[18:22], s.pageNo)
	s.pageNo++
	h[22], h[23], h[24], h[25] = 0, 0, 0, 0

	h[26] = byte(vals)
	bodyBytes := 0
	for i := 0; i < vals; i++ {
		h[27+i] = byte(s.lacing[i])
		bodyBytes += s.lacing[i] & 0xff
	}

	page := Page{
		Header: h[:HeaderSize+vals],
		Body:   s.body[s.bodyReturned : s.bodyReturned+bodyBytes],
	}

	s.lacing = append(s.lacing[:0], s.lacing[vals:]...)
	s.granules = append(s.granules[:0], s.granules[vals:]...)
	s.bodyReturned += bodyBytes

	crc := Checksum(Checksum(0, page.Header), page.Body)
	binary.LittleEndian.PutUint32(page.Header[22:26], crc)

	return page, true
}
