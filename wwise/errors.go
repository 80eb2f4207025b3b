// Package wwise holds domain types shared by the Wwise audio packages: the
// tagged parse error used throughout the conversion pipeline and the record
// type describing a wem extracted from a SoundBank.
package wwise

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ParseError so that callers can react to the class
// of failure without matching on message text.
type ErrorKind int

const (
	// Malformed indicates a structurally broken input: bad magic, truncated
	// chunks or packets, or declared sizes that disagree with the data.
	Malformed ErrorKind = iota
	// Unsupported indicates a recognized but unhandled format variant, such
	// as an unknown vorb chunk size or codebook lookup type.
	Unsupported
	// InvalidRef indicates an index that points outside its declared range:
	// a codebook, floor, residue or mapping number.
	InvalidRef
	// Capacity indicates that an Ogg page payload overflowed.
	Capacity
	// EndOfInput indicates that a bitstream was exhausted mid-read.
	EndOfInput
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Unsupported:
		return "unsupported"
	case InvalidRef:
		return "invalid reference"
	case Capacity:
		return "capacity exceeded"
	case EndOfInput:
		return "end of input"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// A ParseError reports a failure to parse or reconstruct Wwise audio data.
type ParseError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Msg
}

// NewError creates a ParseError of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return &ParseError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) a ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
