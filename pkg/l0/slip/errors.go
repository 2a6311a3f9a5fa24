package slip

import (
	"errors"
	"fmt"
)

var (
	// ErrBadEsc indicates ESC is followed by a byte other than ESC_END/ESC_ESC.
	ErrBadEsc = errors.New("slip: bad escape sequence")
	// ErrBufferFull indicates the buffer capacity is exhausted.
	ErrBufferFull = errors.New("slip: buffer full")
)

// ErrorCode identifies the kind of decoding failure.
type ErrorCode int

// Decoding error codes.
const (
	BadEsc ErrorCode = iota + 1
	BufferFull
)

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	switch c {
	case BadEsc:
		return "BadEsc"
	case BufferFull:
		return "BufferFull"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// DecoderError reports where in the fed input decoding failed.
type DecoderError struct {
	// Pos is the number of input bytes consumed, including the failing one.
	Pos  int
	Code ErrorCode
}

// Error implements error.
func (e *DecoderError) Error() string {
	return fmt.Sprintf("slip: %s at %d", e.Code, e.Pos)
}

// Unwrap maps the code to ErrBadEsc or ErrBufferFull.
func (e *DecoderError) Unwrap() error {
	switch e.Code {
	case BadEsc:
		return ErrBadEsc
	case BufferFull:
		return ErrBufferFull
	}
	return nil
}
