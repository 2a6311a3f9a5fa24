package gpio

import (
	"github.com/robotalks/picoha.go/pkg/l0/ha"
)

// Request is a decoded host request.
type Request interface {
	Code() ha.Code
}

// Generic requests.
type (
	Ping    struct{}
	ItfType struct{}
	Version struct{}
	IDGet   struct{}
)

// Code implements Request.
func (Ping) Code() ha.Code { return ha.CodePing }

// Code implements Request.
func (ItfType) Code() ha.Code { return ha.CodeItfType }

// Code implements Request.
func (Version) Code() ha.Code { return ha.CodeVersion }

// Code implements Request.
func (IDGet) Code() ha.Code { return ha.CodeIDGet }

// DirSet configures the direction of a pin.
type DirSet struct {
	Pin uint8
	Dir Dir
}

// Code implements Request.
func (DirSet) Code() ha.Code { return ha.CodeGpioDirSet }

// DirGet queries the direction of a pin.
type DirGet struct {
	Pin uint8
}

// Code implements Request.
func (DirGet) Code() ha.Code { return ha.CodeGpioDirGet }

// Write drives an output pin.
type Write struct {
	Pin   uint8
	Value Value
}

// Code implements Request.
func (Write) Code() ha.Code { return ha.CodeGpioWrite }

// Read samples a pin.
type Read struct {
	Pin uint8
}

// Code implements Request.
func (Read) Code() ha.Code { return ha.CodeGpioRead }

// ParseRequest builds a Request from a frame. A request is only returned
// when all of its arguments are present and valid.
func ParseRequest(f ha.Frame) (Request, error) {
	if !f.Code.IsRequest() {
		return nil, &ha.NotARequestError{Code: f.Code}
	}
	argp := ha.NewArgParser(f.Payload)
	switch f.Code {
	case ha.CodePing:
		return Ping{}, nil
	case ha.CodeItfType:
		return ItfType{}, nil
	case ha.CodeVersion:
		return Version{}, nil
	case ha.CodeIDGet:
		return IDGet{}, nil

	case ha.CodeGpioDirSet:
		pin, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		x, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		dir, ok := DirFromU8(x)
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		return DirSet{Pin: pin, Dir: dir}, nil

	case ha.CodeGpioDirGet:
		pin, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		return DirGet{Pin: pin}, nil

	case ha.CodeGpioWrite:
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
		return Write{Pin: pin, Value: value}, nil

	case ha.CodeGpioRead:
		pin, ok := argp.ConsumeU8()
		if !ok {
			return nil, ha.ErrInvalidArg
		}
		return Read{Pin: pin}, nil
	}
	return nil, ha.ErrUnknownCode
}

// RequestFrame serializes a request for sending.
func RequestFrame(req Request) ha.Frame {
	f := ha.Frame{Code: req.Code()}
	switch r := req.(type) {
	case DirSet:
		f.Payload = []byte{r.Pin, uint8(r.Dir)}
	case DirGet:
		f.Payload = []byte{r.Pin}
	case Write:
		f.Payload = []byte{r.Pin, uint8(r.Value)}
	case Read:
		f.Payload = []byte{r.Pin}
	}
	return f
}
