package ha

import (
	"bytes"
	"io"
)

// Frame overhead: 2 bytes code and 2 bytes CRC.
const (
	CodeSize     = 2
	CRCSize      = 2
	FrameMinSize = CodeSize + CRCSize
)

// DefaultPayloadCapacity bounds the payload when nothing else is configured.
const DefaultPayloadCapacity = 256

// Frame is a decoded message.
type Frame struct {
	Code    Code
	Payload []byte
}

// DecodeFrame validates a de-escaped frame. The returned payload aliases
// b; it must be consumed before b is reused.
func DecodeFrame(b []byte, capacity int) (Frame, error) {
	if len(b) < FrameMinSize {
		return Frame{}, ErrInvalidLength
	}

	body := b[:len(b)-CRCSize]
	received := uint16(b[len(b)-2])<<8 | uint16(b[len(b)-1])
	if computed := Checksum(body); computed != received {
		return Frame{}, &CRCError{Computed: computed, Received: received}
	}

	code, ok := CodeFromBytes(body[0], body[1])
	if !ok {
		return Frame{}, ErrUnknownCode
	}

	payload := body[CodeSize:]
	if len(payload) > capacity {
		return Frame{}, ErrInvalidLength
	}
	return Frame{Code: code, Payload: payload}, nil
}

// CRC computes the CRC of code and payload.
func (f Frame) CRC() uint16 {
	return frameCRC(f.Code, f.Payload)
}

// Len returns the serialized length.
func (f Frame) Len() int {
	return len(f.Payload) + FrameMinSize
}

// EncodeTo writes the serialized frame.
func (f Frame) EncodeTo(w io.Writer) (n int, err error) {
	code := f.Code.Bytes()
	if n, err = w.Write(code[:]); err != nil {
		return
	}
	if len(f.Payload) > 0 {
		var n1 int
		n1, err = w.Write(f.Payload)
		n += n1
		if err != nil {
			return
		}
	}
	crc := f.CRC()
	n1, err := w.Write([]byte{byte(crc >> 8), byte(crc)})
	n += n1
	return
}

// Bytes returns the serialized frame in a new slice.
func (f Frame) Bytes() []byte {
	b := make([]byte, f.Len())
	b[0], b[1] = byte(f.Code>>8), byte(f.Code)
	copy(b[CodeSize:], f.Payload)
	crc := f.CRC()
	b[len(b)-2], b[len(b)-1] = byte(crc>>8), byte(crc)
	return b
}

// Equal compares code and payload bytes.
func (f Frame) Equal(o Frame) bool {
	return f.Code == o.Code && bytes.Equal(f.Payload, o.Payload)
}
