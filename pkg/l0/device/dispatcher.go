// Package device implements the adapter side of the protocol: dispatching
// requests to a GPIO provider and the pipeline turning transport bytes into
// responses.
package device

import (
	"errors"

	"github.com/robotalks/picoha.go/pkg/hw"
	"github.com/robotalks/picoha.go/pkg/l0/gpio"
	"github.com/robotalks/picoha.go/pkg/l0/ha"
)

// Default identity of an adapter.
const (
	DefaultVersion = "0.0.1"
	DefaultID      = "this_is_my_id"
)

// Identity is what the adapter reports about itself.
type Identity struct {
	Version string
	ID      []byte
}

// DefaultIdentity returns the identity used when nothing is configured.
func DefaultIdentity() Identity {
	return Identity{Version: DefaultVersion, ID: []byte(DefaultID)}
}

// Dispatcher executes requests against a provider.
type Dispatcher struct {
	Identity Identity
	Provider hw.Provider
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(identity Identity, provider hw.Provider) *Dispatcher {
	return &Dispatcher{Identity: identity, Provider: provider}
}

// Dispatch produces exactly one response for a request.
func (d *Dispatcher) Dispatch(req gpio.Request) gpio.Response {
	switch r := req.(type) {
	case gpio.Ping:
		return gpio.Good{}
	case gpio.ItfType:
		return gpio.ItfTypeResp{Type: gpio.ItfTypeGpio}
	case gpio.Version:
		return gpio.VersionResp{Version: d.Identity.Version}
	case gpio.IDGet:
		return gpio.IDResp{ID: d.Identity.ID}
	case gpio.DirSet:
		if err := d.Provider.SetDirection(r.Pin, r.Dir); err != nil {
			return ErrorResponse(err)
		}
		return gpio.Good{}
	case gpio.DirGet:
		dir, err := d.Provider.Direction(r.Pin)
		if err != nil {
			return ErrorResponse(err)
		}
		return gpio.DirResp{Pin: r.Pin, Dir: dir}
	case gpio.Write:
		if err := d.Provider.SetValue(r.Pin, r.Value); err != nil {
			return ErrorResponse(err)
		}
		return gpio.Good{}
	case gpio.Read:
		value, err := d.Provider.Value(r.Pin)
		if err != nil {
			return ErrorResponse(err)
		}
		return gpio.ValueResp{Pin: r.Pin, Value: value}
	}
	return gpio.NewErrorResp(ha.CodeErrUnknownCode, "")
}

// HandleFrame decodes and dispatches a frame. Any decoding failure becomes
// an error response.
func (d *Dispatcher) HandleFrame(b []byte, capacity int) gpio.Response {
	f, err := ha.DecodeFrame(b, capacity)
	if err != nil {
		return ErrorResponse(err)
	}
	req, err := gpio.ParseRequest(f)
	if err != nil {
		return ErrorResponse(err)
	}
	return d.Dispatch(req)
}

// ErrorResponse folds an error into the response sent to the host.
func ErrorResponse(err error) gpio.ErrorResp {
	var crcErr *ha.CRCError
	var notReq *ha.NotARequestError
	switch {
	case errors.Is(err, ha.ErrInvalidLength):
		return gpio.NewErrorResp(ha.CodeErrGeneric, "invalid length")
	case errors.As(err, &crcErr):
		return gpio.NewErrorResp(ha.CodeErrCRC, "")
	case errors.Is(err, ha.ErrUnknownCode):
		return gpio.NewErrorResp(ha.CodeErrUnknownCode, "")
	case errors.Is(err, ha.ErrInvalidArg):
		return gpio.NewErrorResp(ha.CodeErrInvalidArgs, "")
	case errors.As(err, &notReq):
		return gpio.NewErrorResp(ha.CodeErrGeneric, "not a request: "+notReq.Code.String())
	case errors.Is(err, hw.ErrInvalidPin):
		return gpio.NewErrorResp(ha.CodeErrInvalidArgs, "invalid pin")
	}
	return gpio.NewErrorResp(ha.CodeErrGeneric, err.Error())
}
