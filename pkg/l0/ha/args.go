package ha

// ArgParser consumes typed values from a payload, front to back.
type ArgParser struct {
	buf []byte
	idx int
}

// NewArgParser creates an ArgParser over buf.
func NewArgParser(buf []byte) *ArgParser {
	return &ArgParser{buf: buf}
}

// ConsumeU8 returns the next byte.
func (p *ArgParser) ConsumeU8() (uint8, bool) {
	if p.idx >= len(p.buf) {
		return 0, false
	}
	c := p.buf[p.idx]
	p.idx++
	return c, true
}

// ConsumeU16 returns the next two bytes as big-endian.
func (p *ArgParser) ConsumeU16() (uint16, bool) {
	if len(p.buf)-p.idx < 2 {
		return 0, false
	}
	v := uint16(p.buf[p.idx])<<8 | uint16(p.buf[p.idx+1])
	p.idx += 2
	return v, true
}

// Remaining returns the number of unconsumed bytes.
func (p *ArgParser) Remaining() int {
	return len(p.buf) - p.idx
}
