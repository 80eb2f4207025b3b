package wwise

// A BnkWem is a single wem payload extracted from a SoundBank.
type BnkWem struct {
	// The numeric ID of the wem, as listed in the DIDX section. The
	// canonical on-disk name of a streamed wem is "<Id>.wem".
	Id uint32
	// Streamed is true when the SoundBank only embeds a prefetch stub for
	// this wem; the full audio lives in an external "<Id>.wem" file.
	Streamed bool
	// The embedded bytes: a complete wem when Streamed is false, or the
	// prefetch stub when it is true.
	Data []byte
}
