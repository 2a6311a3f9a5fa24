package slip

// SLIP special bytes.
const (
	END    byte = 0xC0
	ESC    byte = 0xDB
	ESCEND byte = 0xDC
	ESCESC byte = 0xDD
)

// buffer is a fixed capacity byte array with a write cursor.
type buffer struct {
	buf []byte
	idx int
}

func newBuffer(capacity int) buffer {
	return buffer{buf: make([]byte, capacity)}
}

// Put appends one byte.
func (b *buffer) Put(c byte) error {
	if b.idx >= len(b.buf) {
		return ErrBufferFull
	}
	b.buf[b.idx] = c
	b.idx++
	return nil
}

// Bytes returns the bytes written so far. The slice is only valid until
// the next Reset.
func (b *buffer) Bytes() []byte {
	return b.buf[:b.idx]
}

// Len returns the number of bytes written.
func (b *buffer) Len() int {
	return b.idx
}

// Cap returns the capacity.
func (b *buffer) Cap() int {
	return len(b.buf)
}

// Reset rewinds the cursor.
func (b *buffer) Reset() {
	b.idx = 0
}

// Decoder de-escapes a byte stream into frame payloads.
//
// A Decoder never resets itself: after a frame completes or an error is
// reported the caller inspects Bytes and then must call Reset before
// feeding the next frame.
type Decoder struct {
	buf      buffer
	escaping bool
}

// NewDecoder creates a Decoder whose payload holds at most capacity bytes.
func NewDecoder(capacity int) *Decoder {
	return &Decoder{buf: newBuffer(capacity)}
}

// Feed consumes input until a frame completes, an error occurs or input is
// exhausted. It returns the number of bytes consumed and whether END was
// seen. Bytes after END are left for the next Feed.
func (d *Decoder) Feed(input []byte) (consumed int, complete bool, err error) {
	for consumed < len(input) {
		c := input[consumed]
		consumed++

		if d.escaping {
			d.escaping = false
			switch c {
			case ESCEND:
				c = END
			case ESCESC:
				c = ESC
			default:
				return consumed, false, &DecoderError{Pos: consumed, Code: BadEsc}
			}
			if d.buf.Put(c) != nil {
				return consumed, false, &DecoderError{Pos: consumed, Code: BufferFull}
			}
			continue
		}

		switch c {
		case END:
			return consumed, true, nil
		case ESC:
			d.escaping = true
		default:
			if d.buf.Put(c) != nil {
				return consumed, false, &DecoderError{Pos: consumed, Code: BufferFull}
			}
		}
	}
	return consumed, false, nil
}

// Bytes returns the decoded payload accumulated since the last Reset.
func (d *Decoder) Bytes() []byte {
	return d.buf.Bytes()
}

// Len returns the number of decoded bytes.
func (d *Decoder) Len() int {
	return d.buf.Len()
}

// Cap returns the payload capacity.
func (d *Decoder) Cap() int {
	return d.buf.Cap()
}

// Escaping reports whether the last fed byte was an unfinished ESC.
func (d *Decoder) Escaping() bool {
	return d.escaping
}

// Reset discards the accumulated payload.
func (d *Decoder) Reset() {
	d.escaping = false
	d.buf.Reset()
}
