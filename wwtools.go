// Package wwtools converts Wwise WEM audio into playable Ogg Vorbis.
//
// A WEM stores Vorbis audio with the standard headers stripped and the
// packets reframed; conversion rebuilds the headers and container, then
// recomputes the granule positions so players can seek and report durations.
package wwtools

import (
	"bytes"
	"fmt"

	"github.com/tnt-coders/wwise-audio-tools/revorb"
	"github.com/tnt-coders/wwise-audio-tools/wem"
)

// ConvertWemToOgg converts a complete in-memory WEM to an Ogg Vorbis
// stream. The WEM must inline its codebooks or carry a full header triad;
// use ConvertWemToOggOptions to supply an external codebook blob.
func ConvertWemToOgg(data []byte) ([]byte, error) {
	return ConvertWemToOggOptions(data, wem.Options{})
}

// ConvertWemToOggOptions converts a WEM with explicit conversion options.
func ConvertWemToOggOptions(data []byte, opts wem.Options) ([]byte, error) {
	f, err := wem.NewFile(data, opts)
	if err != nil {
		return nil, err
	}

	var generated bytes.Buffer
	if err := f.GenerateOgg(&generated); err != nil {
		return nil, fmt.Errorf("generate ogg: %w", err)
	}

	var out bytes.Buffer
	if err := revorb.Revorb(generated.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("recompute granules: %w", err)
	}
	return out.Bytes(), nil
}
