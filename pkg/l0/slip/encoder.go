package slip

// Encoder escapes payloads into a fixed capacity output buffer.
type Encoder struct {
	buf buffer
}

// NewEncoder creates an Encoder whose output holds at most capacity bytes.
// A payload of n bytes needs at most 2n+2 bytes of output.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: newBuffer(capacity)}
}

// EncodedLen returns the worst case output size for a payload of n bytes
// with leading and trailing END.
func EncodedLen(n int) int {
	return 2*n + 2
}

// Begin emits a leading END, which makes the receiver drop any noise
// accumulated before the frame.
func (e *Encoder) Begin() error {
	return e.buf.Put(END)
}

// Feed appends escaped bytes.
func (e *Encoder) Feed(data []byte) error {
	for _, c := range data {
		var err error
		switch c {
		case END:
			err = e.put2(ESC, ESCEND)
		case ESC:
			err = e.put2(ESC, ESCESC)
		default:
			err = e.buf.Put(c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Write implements io.Writer using Feed.
func (e *Encoder) Write(p []byte) (int, error) {
	start := e.buf.Len()
	if err := e.Feed(p); err != nil {
		e.buf.idx = start
		return 0, err
	}
	return len(p), nil
}

// Finish appends the trailing END.
func (e *Encoder) Finish() error {
	return e.buf.Put(END)
}

// Bytes returns the encoded stream, valid until the next Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Reset clears the output.
func (e *Encoder) Reset() {
	e.buf.Reset()
}

// put2 writes an escape pair or nothing at all.
func (e *Encoder) put2(a, b byte) error {
	if e.buf.Len()+2 > e.buf.Cap() {
		return ErrBufferFull
	}
	e.buf.Put(a)
	e.buf.Put(b)
	return nil
}

// Encode is a convenience returning a newly allocated END-terminated frame.
func Encode(payload []byte) []byte {
	e := NewEncoder(EncodedLen(len(payload)))
	e.Feed(payload)
	e.Finish()
	return e.Bytes()
}
