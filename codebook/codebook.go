// Package codebook rebuilds Vorbis codebooks from Wwise's stripped-down
// representation. Wwise either references codebooks by id in an external
// packed library or inlines them in the setup header; both use a compact
// form with narrow length fields that this package widens back to the
// standard Vorbis layout.
package codebook

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/tnt-coders/wwise-audio-tools/bitstream"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// Ilog returns the number of bits needed to represent v, and 0 for v == 0.
// This is the ilog of the Vorbis specification.
func Ilog(v uint32) uint {
	var ret uint
	for v != 0 {
		ret++
		v >>= 1
	}
	return ret
}

// maptype1Quantvals returns floor(entries^(1/dimensions)), the scalar value
// count of a lookup-type-1 table. Ported from Tremor: start from a shift
// hint, then polish.
func maptype1Quantvals(entries, dimensions uint32) uint32 {
	bits := Ilog(entries)
	vals := int64(entries >> ((bits - 1) * uint(dimensions-1) / uint(dimensions)))

	for {
		acc := int64(1)
		acc1 := int64(1)
		for i := uint32(0); i < dimensions; i++ {
			acc *= vals
			acc1 *= vals + 1
		}
		if acc <= int64(entries) && acc1 > int64(entries) {
			return uint32(vals)
		}
		if acc > int64(entries) {
			vals--
		} else {
			vals++
		}
	}
}

// A Library holds the packed external codebook blob: concatenated codebook
// data followed by a table of little-endian offsets, whose own offset sits
// in the last four bytes. The final table entry points past the last
// codebook, so id n's size is offsets[n+1]-offsets[n].
type Library struct {
	data    []byte
	offsets []uint32
}

// NewLibrary parses a packed codebook blob.
func NewLibrary(blob []byte) (*Library, error) {
	if len(blob) < 4 {
		return nil, wwise.NewError(wwise.Malformed, "codebook blob too short (%d bytes)", len(blob))
	}
	offsetOffset := binary.LittleEndian.Uint32(blob[len(blob)-4:])
	if int(offsetOffset) > len(blob)-4 || (len(blob)-int(offsetOffset))%4 != 0 {
		return nil, wwise.NewError(wwise.Malformed, "codebook blob offset table at %d out of range", offsetOffset)
	}
	count := (len(blob) - int(offsetOffset)) / 4

	l := &Library{
		data:    blob[:offsetOffset],
		offsets: make([]uint32, count),
	}
	for i := range l.offsets {
		l.offsets[i] = binary.LittleEndian.Uint32(blob[int(offsetOffset)+4*i:])
	}
	return l, nil
}

// LoadLibrary reads and parses a packed codebook file.
func LoadLibrary(path string) (*Library, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewLibrary(blob)
}

// Count returns the number of codebooks addressable by id.
func (l *Library) Count() int {
	if l == nil || len(l.offsets) == 0 {
		return 0
	}
	return len(l.offsets) - 1
}

func (l *Library) codebook(i int) ([]byte, error) {
	if l == nil || len(l.data) == 0 || len(l.offsets) == 0 {
		return nil, wwise.NewError(wwise.Malformed, "codebook library not loaded")
	}
	if i < 0 || i >= len(l.offsets)-1 {
		return nil, wwise.NewError(wwise.InvalidRef, "invalid codebook id %d", i)
	}
	return l.data[l.offsets[i]:l.offsets[i+1]], nil
}

// Rebuild writes codebook id i to w in standard Vorbis form.
func (l *Library) Rebuild(i int, w *bitstream.Writer) error {
	cb, err := l.codebook(i)
	if err != nil {
		return err
	}
	r := bitstream.NewReader(bytes.NewReader(cb))
	return Rebuild(r, uint64(len(cb)), w)
}

// Rebuild reads one compact codebook from r and writes it to w in standard
// form. size is the codebook's byte length and is verified after the read;
// pass 0 to skip the check for inline codebooks, whose extent the
// surrounding setup data delimits.
func Rebuild(r *bitstream.Reader, size uint64, w *bitstream.Writer) error {
	dimensions := r.ReadUint(4)
	entries := r.ReadUint(14)
	if err := r.Err(); err != nil {
		return err
	}

	w.WriteUint(0x564342, 24)
	w.WriteUint(dimensions, 16)
	w.WriteUint(entries, 24)

	if ordered := r.ReadBit(); ordered {
		w.WriteBit(true)
		if err := copyOrderedLengths(r, w, entries); err != nil {
			return err
		}
	} else {
		w.WriteBit(false)
		codewordLengthLength := uint(r.ReadUint(3))
		sparse := r.ReadBit()
		if err := r.Err(); err != nil {
			return err
		}
		if codewordLengthLength == 0 || codewordLengthLength > 5 {
			return wwise.NewError(wwise.Malformed, "nonsense codeword length")
		}
		w.WriteBit(sparse)

		for i := uint32(0); i < entries; i++ {
			present := true
			if sparse {
				present = r.ReadBit()
				w.WriteBit(present)
			}
			if present {
				w.WriteUint(r.ReadUint(codewordLengthLength), 5)
			}
			if err := r.Err(); err != nil {
				return err
			}
		}
	}

	lookupType := r.ReadUint(1)
	w.WriteUint(lookupType, 4)
	if err := copyLookup(r, w, lookupType, entries, dimensions); err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}

	// all bytes must be consumed; a fully used final byte still counts
	if size != 0 && r.TotalBitsRead()/8+1 != size {
		return wwise.NewError(wwise.Malformed, "codebook size mismatch: used %d bytes of %d",
			r.TotalBitsRead()/8+1, size)
	}
	return w.Err()
}

// Copy transfers one standard-form codebook from r to w unchanged. Used for
// the full-setup variant, whose codebooks are not compacted.
func Copy(r *bitstream.Reader, w *bitstream.Writer) error {
	id := r.ReadUint(24)
	dimensions := r.ReadUint(16)
	entries := r.ReadUint(24)
	if err := r.Err(); err != nil {
		return err
	}
	if id != 0x564342 {
		return wwise.NewError(wwise.Malformed, "invalid codebook identifier %#x", id)
	}
	w.WriteUint(id, 24)
	w.WriteUint(dimensions, 16)
	w.WriteUint(entries, 24)

	if ordered := r.ReadBit(); ordered {
		w.WriteBit(true)
		if err := copyOrderedLengths(r, w, entries); err != nil {
			return err
		}
	} else {
		w.WriteBit(false)
		sparse := r.ReadBit()
		w.WriteBit(sparse)
		for i := uint32(0); i < entries; i++ {
			present := true
			if sparse {
				present = r.ReadBit()
				w.WriteBit(present)
			}
			if present {
				w.WriteUint(r.ReadUint(5), 5)
			}
			if err := r.Err(); err != nil {
				return err
			}
		}
	}

	lookupType := r.ReadUint(4)
	w.WriteUint(lookupType, 4)
	if err := copyLookup(r, w, lookupType, entries, dimensions); err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	return w.Err()
}

func copyOrderedLengths(r *bitstream.Reader, w *bitstream.Writer, entries uint32) error {
	w.WriteUint(r.ReadUint(5), 5) // initial length

	current := uint32(0)
	for current < entries {
		number := r.ReadUint(Ilog(entries - current))
		if err := r.Err(); err != nil {
			return err
		}
		w.WriteUint(number, Ilog(entries-current))
		current += number
	}
	if current > entries {
		return wwise.NewError(wwise.Malformed, "ordered codeword count out of range")
	}
	return nil
}

func copyLookup(r *bitstream.Reader, w *bitstream.Writer, lookupType, entries, dimensions uint32) error {
	switch lookupType {
	case 0:
		return nil
	case 1:
		// quantvals is entries^(1/dimensions); a zero dimension count has
		// no scalar table and would divide by zero below
		if dimensions == 0 {
			return wwise.NewError(wwise.Malformed, "lookup type 1 with zero dimensions")
		}
		w.WriteUint(r.ReadUint(32), 32) // minimum value
		w.WriteUint(r.ReadUint(32), 32) // delta value
		valueLength := r.ReadUint(4)
		sequenceFlag := r.ReadBit()
		if err := r.Err(); err != nil {
			return err
		}
		w.WriteUint(valueLength, 4)
		w.WriteBit(sequenceFlag)

		quantvals := maptype1Quantvals(entries, dimensions)
		for i := uint32(0); i < quantvals; i++ {
			w.WriteUint(r.ReadUint(uint(valueLength)+1), uint(valueLength)+1)
			if err := r.Err(); err != nil {
				return err
			}
		}
		return nil
	case 2:
		return wwise.NewError(wwise.Unsupported, "didn't expect lookup type 2")
	default:
		return wwise.NewError(wwise.Unsupported, "invalid lookup type %d", lookupType)
	}
}
