// Package revorb rewrites the granule positions of an Ogg Vorbis stream.
// Reconstructed streams carry granules that are missing, approximate or
// placeholders; this recomputes them from the audio packets themselves and
// repaginates the stream.
package revorb

import (
	"io"

	"github.com/tnt-coders/wwise-audio-tools/ogg"
	"github.com/tnt-coders/wwise-audio-tools/vorbis"
	"github.com/tnt-coders/wwise-audio-tools/wwise"
)

// Revorb copies the Vorbis header packets of in to w unchanged, then
// re-emits every audio packet with a recomputed granule position. Each
// packet advances the granule by (previous blocksize + current blocksize)/4
// samples, the overlap-add contribution of consecutive Vorbis blocks; the
// first audio packet stays at granule zero because it has no predecessor to
// overlap with.
//
// Pages already written to w are not rolled back on error.
func Revorb(in []byte, w io.Writer) error {
	r := ogg.NewPacketReader(in)

	ident, err := r.Next()
	if err != nil {
		return err
	}
	comment, err := r.Next()
	if err != nil {
		return err
	}
	setup, err := r.Next()
	if err != nil {
		return err
	}
	if err := vorbis.CheckComment(comment.Data); err != nil {
		return err
	}
	info, err := vorbis.Parse(ident.Data, setup.Data)
	if err != nil {
		return err
	}

	out := ogg.NewStream(r.Serial())
	out.PacketIn(ident.Data, 0, false)
	out.PacketIn(comment.Data, 0, false)
	out.PacketIn(setup.Data, 0, false)
	if err := drain(out.Flush, w); err != nil {
		return err
	}

	var granule int64
	var lastBlocksize uint32
	sawAudio := false

	for {
		packet, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		sawAudio = true

		blocksize, err := info.PacketBlocksize(packet.Data)
		if err != nil {
			return err
		}
		if lastBlocksize != 0 {
			granule += int64(lastBlocksize+blocksize) / 4
		}
		lastBlocksize = blocksize

		out.PacketIn(packet.Data, granule, packet.Last)
		if packet.Last {
			if err := drain(out.Flush, w); err != nil {
				return err
			}
			return nil
		}
		if err := drain(out.PageOut, w); err != nil {
			return err
		}
	}

	if !sawAudio {
		return wwise.NewError(wwise.Malformed, "stream has no audio packets")
	}
	return wwise.NewError(wwise.Malformed, "stream ended without a final audio packet")
}

func drain(next func() (ogg.Page, bool), w io.Writer) error {
	for {
		page, ok := next()
		if !ok {
			return nil
		}
		if err := page.WriteTo(w); err != nil {
			return err
		}
	}
}
