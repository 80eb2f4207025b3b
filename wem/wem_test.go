package wem

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/tnt-coders/wwise-audio-tools/bitstream"
	"github.com/tnt-coders/wwise-audio-tools/ogg"
	"github.com/tnt-coders/wwise-audio-tools/vorbis"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// bitBuf assembles test payloads in Vorbis bit order.
type bitBuf struct {
	data []byte
	bits uint
}

func (b *bitBuf) put(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		if b.bits%8 == 0 {
			b.data = append(b.data, 0)
		}
		if v&(1<<i) != 0 {
			b.data[len(b.data)-1] |= 1 << (b.bits % 8)
		}
		b.bits++
	}
}

type chunk struct {
	id   string
	body []byte
}

func buildContainer(chunks ...chunk) []byte {
	var body []byte
	for _, c := range chunks {
		body = append(body, c.id...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(c.body)))
		body = append(body, c.body...)
	}
	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(4+len(body)))
	out = append(out, "WAVE"...)
	return append(out, body...)
}

// fmtChunk builds a 0x18 fmt body: Vorbis codec tag, mono, 48 kHz.
func fmtChunk() []byte {
	var b []byte
	b = binary.LittleEndian.AppendUint16(b, 0xFFFF)
	b = binary.LittleEndian.AppendUint16(b, 1) // channels
	b = binary.LittleEndian.AppendUint32(b, 48000)
	b = binary.LittleEndian.AppendUint32(b, 6000) // avg bytes per second
	b = binary.LittleEndian.AppendUint16(b, 0)    // block align
	b = binary.LittleEndian.AppendUint16(b, 0)    // bits per sample
	b = binary.LittleEndian.AppendUint16(b, 6)    // extra size
	b = binary.LittleEndian.AppendUint16(b, 0)    // ext unknown
	b = binary.LittleEndian.AppendUint32(b, 4)    // subtype
	return b
}

// compactSetup builds a stripped setup payload with one inline codebook,
// one floor, one residue, one mapping and two modes (short, long).
func compactSetup() []byte {
	var b bitBuf
	b.put(0, 8) // codebook count - 1

	// compact codebook: 1 dimension, 2 entries, no lookup
	b.put(1, 4)  // dimensions
	b.put(2, 14) // entries
	b.put(0, 1)  // ordered
	b.put(3, 3)  // codeword length length
	b.put(0, 1)  // sparse
	b.put(0, 3)
	b.put(1, 3)
	b.put(0, 1) // lookup type

	b.put(0, 6)  // floor count - 1
	b.put(1, 5)  // partitions
	b.put(0, 4)  // partition 0 class
	b.put(0, 3)  // class 0 dimensions - 1
	b.put(0, 2)  // class 0 subclasses
	b.put(0, 8)  // subclass book + 1
	b.put(0, 2)  // multiplier - 1
	b.put(6, 4)  // rangebits
	b.put(17, 6) // X value

	b.put(0, 6)  // residue count - 1
	b.put(0, 2)  // residue type
	b.put(0, 24) // begin
	b.put(0, 24) // end
	b.put(0, 24) // partition size - 1
	b.put(0, 6)  // classifications - 1
	b.put(0, 8)  // classbook
	b.put(0, 3)  // cascade low bits
	b.put(0, 1)  // cascade high flag

	b.put(0, 6) // mapping count - 1
	b.put(0, 1) // submaps flag
	b.put(0, 1) // square polar flag
	b.put(0, 2) // reserved
	b.put(0, 8) // time configuration
	b.put(0, 8) // floor number
	b.put(0, 8) // residue number

	b.put(1, 6) // mode count - 1
	b.put(0, 1) // mode 0: short blocks
	b.put(0, 8) // mapping number
	b.put(1, 1) // mode 1: long blocks
	b.put(0, 8)
	b.put(1, 1) // framing
	return b.data
}

// vorb34 builds a 0x34 vorb body for files with 6-byte packet headers.
func vorb34(sampleCount, setupOffset, firstAudioOffset uint32) []byte {
	b := make([]byte, 0x34)
	binary.LittleEndian.PutUint32(b[0x00:], sampleCount)
	binary.LittleEndian.PutUint32(b[0x18:], setupOffset)
	binary.LittleEndian.PutUint32(b[0x1C:], firstAudioOffset)
	binary.LittleEndian.PutUint32(b[0x2C:], 12345) // uid
	b[0x30] = 8  // blocksize 0 = 256
	b[0x31] = 11 // blocksize 1 = 2048
	return b
}

// vorb2A builds a 0x2A vorb body for files with 2-byte packet headers and
// the given mod signal.
func vorb2A(sampleCount, modSignal, setupOffset, firstAudioOffset uint32) []byte {
	b := make([]byte, 0x2A)
	binary.LittleEndian.PutUint32(b[0x00:], sampleCount)
	binary.LittleEndian.PutUint32(b[0x04:], modSignal)
	binary.LittleEndian.PutUint32(b[0x10:], setupOffset)
	binary.LittleEndian.PutUint32(b[0x14:], firstAudioOffset)
	binary.LittleEndian.PutUint32(b[0x24:], 12345) // uid
	b[0x28] = 8
	b[0x29] = 11
	return b
}

func packet6(granule uint32, payload []byte) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(payload)))
	b = binary.LittleEndian.AppendUint32(b, granule)
	return append(b, payload...)
}

func packet2(payload []byte) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(payload)))
	return append(b, payload...)
}

func packet8(granule uint32, payload []byte) []byte {
	b := binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))
	b = binary.LittleEndian.AppendUint32(b, granule)
	return append(b, payload...)
}

// standardWem builds a little-endian WEM with inline codebooks, 6-byte
// packet headers and standard audio packets.
func standardWem(audio [][]byte, granules []uint32, extra ...chunk) []byte {
	setup := compactSetup()
	data := packet6(0, setup)
	firstAudio := uint32(len(data))
	for i, p := range audio {
		data = append(data, packet6(granules[i], p)...)
	}
	chunks := []chunk{{"fmt ", fmtChunk()}}
	chunks = append(chunks, extra...)
	chunks = append(chunks,
		chunk{"vorb", vorb34(100000, 0, firstAudio)},
		chunk{"data", data})
	return buildContainer(chunks...)
}

func convert(t *testing.T, wemData []byte, opts Options) []byte {
	t.Helper()
	f, err := NewFile(wemData, opts)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := f.GenerateOgg(&out); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func readAll(t *testing.T, stream []byte) []ogg.Packet {
	t.Helper()
	r := ogg.NewPacketReader(stream)
	var packets []ogg.Packet
	for {
		p, err := r.Next()
		if err == io.EOF {
			return packets
		}
		if err != nil {
			t.Fatal(err)
		}
		packets = append(packets, p)
	}
}

func TestGenerateStandardPackets(t *testing.T) {
	audio := [][]byte{{0x00, 0x12, 0x34}, {0x02, 0x56}}
	wemData := standardWem(audio, []uint32{0x1000, 0x2000})
	out := convert(t, wemData, Options{InlineCodebooks: true})

	packets := readAll(t, out)
	if len(packets) != 5 {
		t.Fatalf("got %d packets, want 5", len(packets))
	}

	// the rebuilt headers must parse as Vorbis
	info, err := vorbis.Parse(packets[0].Data, packets[2].Data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Channels != 1 || info.SampleRate != 48000 {
		t.Errorf("headers: %d ch %d Hz, want 1 ch 48000 Hz", info.Channels, info.SampleRate)
	}
	if info.Blocksize[0] != 256 || info.Blocksize[1] != 2048 {
		t.Errorf("block sizes = %v, want [256 2048]", info.Blocksize)
	}

	// standard audio packets pass through unchanged
	for i, want := range audio {
		got := packets[3+i]
		if !bytes.Equal(got.Data, want) {
			t.Errorf("audio packet %d = %x, want %x", i, got.Data, want)
		}
	}
	if packets[3].Granule != 0x1000 {
		t.Errorf("audio packet 0 granule = %#x, want 0x1000", packets[3].Granule)
	}
	if !packets[4].Last {
		t.Error("final packet not flagged last")
	}

	if bs, err := info.PacketBlocksize(packets[3].Data); err != nil || bs != 256 {
		t.Errorf("packet 0 blocksize = %d, %v; want 256", bs, err)
	}
	if bs, err := info.PacketBlocksize(packets[4].Data); err != nil || bs != 2048 {
		t.Errorf("packet 1 blocksize = %d, %v; want 2048", bs, err)
	}
}

func TestGenerateCommentHeader(t *testing.T) {
	wemData := standardWem([][]byte{{0x00}}, []uint32{0})
	out := convert(t, wemData, Options{InlineCodebooks: true})
	packets := readAll(t, out)

	comment := packets[1].Data
	if err := vorbis.CheckComment(comment); err != nil {
		t.Fatal(err)
	}
	vendorLen := binary.LittleEndian.Uint32(comment[7:11])
	if got := string(comment[11 : 11+vendorLen]); got != "converted from Audiokinetic Wwise by ww2ogg 0.24" {
		t.Errorf("vendor = %q", got)
	}
	if count := binary.LittleEndian.Uint32(comment[11+vendorLen:]); count != 0 {
		t.Errorf("user comment count = %d, want 0", count)
	}
}

func TestGenerateLoopComments(t *testing.T) {
	smpl := make([]byte, 0x34)
	binary.LittleEndian.PutUint32(smpl[0x1C:], 1)    // loop count
	binary.LittleEndian.PutUint32(smpl[0x2C:], 1000) // loop start
	binary.LittleEndian.PutUint32(smpl[0x30:], 8000) // loop end
	wemData := standardWem([][]byte{{0x00}}, []uint32{0}, chunk{"smpl", smpl})

	out := convert(t, wemData, Options{InlineCodebooks: true})
	comment := string(readAll(t, out)[1].Data)
	if !strings.Contains(comment, "LoopStart=1000") {
		t.Error("missing LoopStart comment")
	}
	// stored loop end is inclusive; the comment carries it one past
	if !strings.Contains(comment, "LoopEnd=8001") {
		t.Error("missing adjusted LoopEnd comment")
	}
}

func TestGenerateMapsSentinelGranule(t *testing.T) {
	wemData := standardWem([][]byte{{0x00}, {0x02}}, []uint32{0xFFFFFFFF, 0xFFFFFFFF})
	out := convert(t, wemData, Options{InlineCodebooks: true})
	packets := readAll(t, out)
	if g := packets[3].Granule; g != 1 {
		t.Errorf("placeholder granule mapped to %d, want 1", g)
	}
}

// modWem builds a WEM with 2-byte packet headers and modified packets.
func modWem(audio [][]byte) []byte {
	setup := compactSetup()
	data := packet2(setup)
	firstAudio := uint32(len(data))
	for _, p := range audio {
		data = append(data, packet2(p)...)
	}
	return buildContainer(
		chunk{"fmt ", fmtChunk()},
		chunk{"vorb", vorb2A(100000, 0x12, 0, firstAudio)},
		chunk{"data", data})
}

func TestGenerateModifiedPackets(t *testing.T) {
	// mode bit in the payload's low bit: short, long, short
	audio := [][]byte{{0x00}, {0x01, 0xAB}, {0x00}}
	out := convert(t, modWem(audio), Options{InlineCodebooks: true})
	packets := readAll(t, out)
	if len(packets) != 6 {
		t.Fatalf("got %d packets, want 6", len(packets))
	}

	// the long-window packet gains type, previous-window and next-window
	// bits around its mode number
	r := bitstream.NewReader(bytes.NewReader(packets[4].Data))
	if r.ReadBit() {
		t.Error("packet type bit set")
	}
	if mode := r.ReadUint(1); mode != 1 {
		t.Errorf("mode = %d, want 1", mode)
	}
	if prev := r.ReadBit(); prev {
		t.Error("previous window flag set, previous packet was short")
	}
	if next := r.ReadBit(); next {
		t.Error("next window flag set, next packet is short")
	}
	if rem := r.ReadUint(7); rem != 0 {
		t.Errorf("remainder = %#x, want 0", rem)
	}
	if tail := r.ReadUint(8); tail != 0xAB {
		t.Errorf("payload byte = %#x, want 0xAB", tail)
	}

	// short-window packets gain only the type bit
	r = bitstream.NewReader(bytes.NewReader(packets[3].Data))
	if r.ReadBit() {
		t.Error("packet type bit set on short packet")
	}
	if mode := r.ReadUint(1); mode != 0 {
		t.Errorf("mode = %d, want 0", mode)
	}
}

func TestForcePacketFormat(t *testing.T) {
	// same container, but treat the packets as standard
	audio := [][]byte{{0x00}, {0x02}}
	f, err := NewFile(modWem(audio), Options{
		InlineCodebooks: true,
		PacketFormat:    PacketFormatForceNoMod,
	})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := f.GenerateOgg(&out); err != nil {
		t.Fatal(err)
	}
	packets := readAll(t, out.Bytes())
	if !bytes.Equal(packets[3].Data, audio[0]) {
		t.Errorf("forced standard packet altered: %x", packets[3].Data)
	}
}

// triadWem builds a WEM whose data chunk carries a complete Vorbis header
// triad in 8-byte legacy packets.
func triadWem(t *testing.T, audio [][]byte, granules []uint32) []byte {
	t.Helper()
	ident, comment, setup := standardHeaders()
	data := packet8(0, ident)
	data = append(data, packet8(0, comment)...)
	data = append(data, packet8(0, setup)...)
	firstAudio := uint32(len(data))
	for i, p := range audio {
		data = append(data, packet8(granules[i], p)...)
	}

	vorb := make([]byte, 0x2C)
	binary.LittleEndian.PutUint32(vorb[0x00:], 100000)
	binary.LittleEndian.PutUint32(vorb[0x18:], 0) // header triad offset
	binary.LittleEndian.PutUint32(vorb[0x1C:], firstAudio)

	return buildContainer(
		chunk{"fmt ", fmtChunk()},
		chunk{"vorb", vorb},
		chunk{"data", data})
}

// standardHeaders returns a full Vorbis header triad in standard form.
func standardHeaders() (ident, comment, setup []byte) {
	ident = []byte{1, 'v', 'o', 'r', 'b', 'i', 's'}
	ident = binary.LittleEndian.AppendUint32(ident, 0)
	ident = append(ident, 1)
	ident = binary.LittleEndian.AppendUint32(ident, 48000)
	ident = binary.LittleEndian.AppendUint32(ident, 0)
	ident = binary.LittleEndian.AppendUint32(ident, 0)
	ident = binary.LittleEndian.AppendUint32(ident, 0)
	ident = append(ident, 8|11<<4, 1)

	comment = []byte{3, 'v', 'o', 'r', 'b', 'i', 's'}
	comment = binary.LittleEndian.AppendUint32(comment, 0)
	comment = binary.LittleEndian.AppendUint32(comment, 0)
	comment = append(comment, 1)

	var b bitBuf
	b.put(0, 8)         // codebook count - 1
	b.put(0x564342, 24) // codebook identifier
	b.put(1, 16)        // dimensions
	b.put(2, 24)        // entries
	b.put(0, 1)         // ordered
	b.put(0, 1)         // sparse
	b.put(0, 5)
	b.put(1, 5)
	b.put(0, 4) // lookup type
	b.put(0, 6) // time count - 1
	b.put(0, 16)
	b.put(0, 6)  // floor count - 1
	b.put(1, 16) // floor type
	b.put(1, 5)  // partitions
	b.put(0, 4)
	b.put(0, 3)
	b.put(0, 2)
	b.put(0, 8)
	b.put(0, 2)
	b.put(6, 4)
	b.put(17, 6)
	b.put(0, 6)  // residue count - 1
	b.put(0, 16) // residue type
	b.put(0, 24)
	b.put(0, 24)
	b.put(0, 24)
	b.put(0, 6)
	b.put(0, 8)
	b.put(0, 3)
	b.put(0, 1)
	b.put(0, 6)  // mapping count - 1
	b.put(0, 16) // mapping type
	b.put(0, 1)
	b.put(0, 1)
	b.put(0, 2)
	b.put(0, 8)
	b.put(0, 8)
	b.put(0, 8)
	b.put(1, 6) // mode count - 1
	b.put(0, 1)
	b.put(0, 16)
	b.put(0, 16)
	b.put(0, 8)
	b.put(1, 1)
	b.put(0, 16)
	b.put(0, 16)
	b.put(0, 8)
	b.put(1, 1) // framing
	setup = append([]byte{5, 'v', 'o', 'r', 'b', 'i', 's'}, b.data...)
	return ident, comment, setup
}

func TestGenerateHeaderTriad(t *testing.T) {
	audio := [][]byte{{0x00, 0x11}, {0x02, 0x22}}
	wemData := triadWem(t, audio, []uint32{0x100, 0x200})

	f, err := NewFile(wemData, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.Info(), "Vorbis header triad present") {
		t.Error("Info does not report the header triad")
	}

	var out bytes.Buffer
	if err := f.GenerateOgg(&out); err != nil {
		t.Fatal(err)
	}
	packets := readAll(t, out.Bytes())
	if len(packets) != 5 {
		t.Fatalf("got %d packets, want 5", len(packets))
	}

	ident, comment, setup := standardHeaders()
	for i, want := range [][]byte{ident, comment, setup} {
		if !bytes.Equal(packets[i].Data, want) {
			t.Errorf("header packet %d altered by triad copy", i)
		}
	}
	for i, want := range audio {
		if !bytes.Equal(packets[3+i].Data, want) {
			t.Errorf("audio packet %d altered", i)
		}
	}
}

func TestExternalCodebooks(t *testing.T) {
	// blob with two codebooks; the setup references id 1
	var cb bitBuf
	cb.put(1, 4)
	cb.put(2, 14)
	cb.put(0, 1)
	cb.put(3, 3)
	cb.put(0, 1)
	cb.put(0, 3)
	cb.put(1, 3)
	cb.put(0, 1)
	var blob []byte
	blob = append(blob, cb.data...)
	blob = append(blob, cb.data...)
	offset := uint32(len(blob))
	blob = binary.LittleEndian.AppendUint32(blob, 0)
	blob = binary.LittleEndian.AppendUint32(blob, uint32(len(cb.data)))
	blob = binary.LittleEndian.AppendUint32(blob, offset)

	setup := externalSetup(1)
	data := packet6(0, setup)
	firstAudio := uint32(len(data))
	data = append(data, packet6(0, []byte{0x00})...)
	wemData := buildContainer(
		chunk{"fmt ", fmtChunk()},
		chunk{"vorb", vorb34(100000, 0, firstAudio)},
		chunk{"data", data})

	out := convert(t, wemData, Options{CodebookData: blob})
	packets := readAll(t, out)
	if _, err := vorbis.Parse(packets[0].Data, packets[2].Data); err != nil {
		t.Fatal(err)
	}

	// without the blob the conversion must fail
	f, err := NewFile(wemData, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var discard bytes.Buffer
	if err := f.GenerateOgg(&discard); !wwise.IsKind(err, wwise.Malformed) {
		t.Errorf("conversion without codebooks: err = %v, want malformed", err)
	}
}

// externalSetup builds a stripped setup payload referencing the given
// external codebook id.
func externalSetup(id uint32) []byte {
	var b bitBuf
	b.put(0, 8)   // codebook count - 1
	b.put(id, 10) // external codebook id

	b.put(0, 6) // floor count - 1
	b.put(1, 5)
	b.put(0, 4)
	b.put(0, 3)
	b.put(0, 2)
	b.put(0, 8)
	b.put(0, 2)
	b.put(6, 4)
	b.put(17, 6)
	b.put(0, 6) // residue count - 1
	b.put(0, 2)
	b.put(0, 24)
	b.put(0, 24)
	b.put(0, 24)
	b.put(0, 6)
	b.put(0, 8)
	b.put(0, 3)
	b.put(0, 1)
	b.put(0, 6) // mapping count - 1
	b.put(0, 1)
	b.put(0, 1)
	b.put(0, 2)
	b.put(0, 8)
	b.put(0, 8)
	b.put(0, 8)
	b.put(1, 6) // mode count - 1
	b.put(0, 1)
	b.put(0, 8)
	b.put(1, 1)
	b.put(0, 8)
	b.put(1, 1) // framing
	return b.data
}

func TestFullSetupHint(t *testing.T) {
	// a codebook id of 0x342 followed by 0x1590 spells out a standard
	// codebook identifier, the mark of a full setup header
	var b bitBuf
	b.put(0, 8)
	b.put(0x342, 10)
	b.put(0x1590, 14)
	setup := b.data

	var blob []byte
	blob = append(blob, 0xAA, 0xBB)
	offset := uint32(len(blob))
	blob = binary.LittleEndian.AppendUint32(blob, 0)
	blob = binary.LittleEndian.AppendUint32(blob, offset)

	data := packet6(0, setup)
	firstAudio := uint32(len(data))
	data = append(data, packet6(0, []byte{0x00})...)
	wemData := buildContainer(
		chunk{"fmt ", fmtChunk()},
		chunk{"vorb", vorb34(100000, 0, firstAudio)},
		chunk{"data", data})

	f, err := NewFile(wemData, Options{CodebookData: blob})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err = f.GenerateOgg(&out)
	if err == nil || !strings.Contains(err.Error(), "full setup") {
		t.Fatalf("err = %v, want full-setup hint", err)
	}
}

func TestInfoReport(t *testing.T) {
	f, err := NewFile(modWem([][]byte{{0x00}}), Options{InlineCodebooks: true})
	if err != nil {
		t.Fatal(err)
	}
	info := f.Info()
	for _, want := range []string{
		"RIFF WAVE 1 channel 48000 Hz 48000 bps",
		"100000 samples",
		"2 byte packet headers, no granule",
		"stripped setup header",
		"inline codebooks",
		"modified Vorbis packets",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("Info missing %q in:\n%s", want, info)
		}
	}
}

func TestParseErrors(t *testing.T) {
	good := standardWem([][]byte{{0x00}}, []uint32{0})

	t.Run("not riff", func(t *testing.T) {
		bad := append([]byte{}, good...)
		copy(bad, "JUNK")
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Malformed) {
			t.Errorf("err = %v, want malformed", err)
		}
	})
	t.Run("prefetch stub", func(t *testing.T) {
		bad := good[:len(good)-8]
		_, err := NewFile(bad, Options{})
		if !wwise.IsKind(err, wwise.Malformed) {
			t.Fatalf("err = %v, want malformed", err)
		}
		if !strings.Contains(err.Error(), "streaming/prefetch") {
			t.Errorf("err = %v, want prefetch hint", err)
		}
	})
	t.Run("missing wave", func(t *testing.T) {
		bad := append([]byte{}, good...)
		copy(bad[8:], "XXXX")
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Malformed) {
			t.Errorf("err = %v, want malformed", err)
		}
	})
	t.Run("missing data chunk", func(t *testing.T) {
		bad := buildContainer(chunk{"fmt ", fmtChunk()})
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Malformed) {
			t.Errorf("err = %v, want malformed", err)
		}
	})
	t.Run("bad vorb size", func(t *testing.T) {
		bad := buildContainer(
			chunk{"fmt ", fmtChunk()},
			chunk{"vorb", make([]byte, 0x30)},
			chunk{"data", packet6(0, compactSetup())})
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Unsupported) {
			t.Errorf("err = %v, want unsupported", err)
		}
	})
	t.Run("bad codec id", func(t *testing.T) {
		fmtBody := fmtChunk()
		binary.LittleEndian.PutUint16(fmtBody, 0x0001)
		bad := buildContainer(
			chunk{"fmt ", fmtBody},
			chunk{"vorb", vorb34(100, 0, 36)},
			chunk{"data", packet6(0, compactSetup())})
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Unsupported) {
			t.Errorf("err = %v, want unsupported", err)
		}
	})
	t.Run("loops out of range", func(t *testing.T) {
		smpl := make([]byte, 0x34)
		binary.LittleEndian.PutUint32(smpl[0x1C:], 1)
		binary.LittleEndian.PutUint32(smpl[0x2C:], 999999) // start past sample count
		bad := standardWem([][]byte{{0x00}}, []uint32{0}, chunk{"smpl", smpl})
		if _, err := NewFile(bad, Options{}); !wwise.IsKind(err, wwise.Malformed) {
			t.Errorf("err = %v, want malformed", err)
		}
	})
}
