package gpio

import (
	"unicode/utf8"

	"github.com/robotalks/picoha.go/pkg/l0/ha"
)

// MaxMsgSize bounds texts and identity strings carried in responses.
const MaxMsgSize = 128

// ItfTypeGpio is the interface type reported by a GPIO adapter.
const ItfTypeGpio uint16 = 0x0001

// Response is a reply produced by the device.
type Response interface {
	Frame() ha.Frame
}

// Good acknowledges a request without data.
type Good struct{}

// Frame implements Response.
func (Good) Frame() ha.Frame { return ha.Frame{Code: ha.CodeGood} }

// GoodData is a Good response carrying data, as seen by the host.
type GoodData struct {
	Data []byte
}

// Frame implements Response.
func (r GoodData) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGood, Payload: bounded(r.Data)}
}

// ValueResp reports the level of a pin.
type ValueResp struct {
	Pin   uint8
	Value Value
}

// Frame implements Response.
func (r ValueResp) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGpioValue, Payload: []byte{r.Pin, uint8(r.Value)}}
}

// DirResp reports the direction of a pin. There is no dedicated code for
// it, so it is a Good carrying [pin, dir].
type DirResp struct {
	Pin uint8
	Dir Dir
}

// Frame implements Response.
func (r DirResp) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGood, Payload: []byte{r.Pin, uint8(r.Dir)}}
}

// ItfTypeResp reports the interface type as a Good carrying it big-endian.
type ItfTypeResp struct {
	Type uint16
}

// Frame implements Response.
func (r ItfTypeResp) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGood, Payload: []byte{byte(r.Type >> 8), byte(r.Type)}}
}

// VersionResp reports the firmware version string.
type VersionResp struct {
	Version string
}

// Frame implements Response.
func (r VersionResp) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGood, Payload: boundedText(r.Version)}
}

// IDResp reports the device id.
type IDResp struct {
	ID []byte
}

// Frame implements Response.
func (r IDResp) Frame() ha.Frame {
	return ha.Frame{Code: ha.CodeGood, Payload: bounded(r.ID)}
}

// ErrorResp is an error response with a short diagnostic message.
type ErrorResp struct {
	ErrCode ha.Code
	Msg     string
}

// NewErrorResp creates an ErrorResp.
func NewErrorResp(code ha.Code, msg string) ErrorResp {
	return ErrorResp{ErrCode: code, Msg: msg}
}

// Frame implements Response.
func (r ErrorResp) Frame() ha.Frame {
	return ha.Frame{Code: r.ErrCode, Payload: boundedText(r.Msg)}
}

// Error implements error.
func (r ErrorResp) Error() string {
	if r.Msg == "" {
		return r.ErrCode.String()
	}
	return r.ErrCode.String() + ": " + r.Msg
}

func bounded(b []byte) []byte {
	if len(b) > MaxMsgSize {
		return b[:MaxMsgSize]
	}
	return b
}

// boundedText bounds s without splitting a UTF-8 sequence. Empty text is
// a nil payload.
func boundedText(s string) []byte {
	if s == "" {
		return nil
	}
	if len(s) > MaxMsgSize {
		n := MaxMsgSize
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return []byte(s)
}

// ParseResponse decodes a frame received by the host. Data carried by Good
// is returned as GoodData since its layout depends on the request.
func ParseResponse(f ha.Frame) (Response, error) {
	switch {
	case f.Code == ha.CodeGood:
		if len(f.Payload) == 0 {
			return Good{}, nil
		}
		return GoodData{Data: f.Payload}, nil
	case f.Code == ha.CodeGpioValue:
		argp := ha.NewArgParser(f.Payload)
		pin, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		x, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		value, ok := ValueFromU8(x)
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		return ValueResp{Pin: pin, Value: value}, nil
	case f.Code.IsError():
		return ErrorResp{ErrCode: f.Code, Msg: string(bounded(f.Payload))}, nil
	}
	return nil, ha.ErrUnknownCode
}

// DecodeDirResp interprets GoodData as a DirResp.
func DecodeDirResp(r GoodData) (DirResp, error) {
	argp := ha.NewArgParser(r.Data)
	pin, ok := argp.ConsumeU8()
	if !ok {
		return DirResp{}, ha.ErrInvalidArg
	}
	x, ok := argp.ConsumeU8()
	if !ok {
		return DirResp{}, ha.ErrInvalidArg
	}
	dir, ok := DirFromU8(x)
	if !ok {
		return DirResp{}, ha.ErrInvalidArg
	}
	return DirResp{Pin: pin, Dir: dir}, nil
}

// DecodeItfTypeResp interprets GoodData as an ItfTypeResp.
func DecodeItfTypeResp(r GoodData) (ItfTypeResp, error) {
	v, ok := ha.NewArgParser(r.Data).ConsumeU16()
	if !ok {
		return ItfTypeResp{}, ha.ErrInvalidArg
	}
	return ItfTypeResp{Type: v}, nil
}
