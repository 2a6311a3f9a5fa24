package device

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/picoha.go/pkg/framework"
	"github.com/robotalks/picoha.go/pkg/l0/gpio"
	"github.com/robotalks/picoha.go/pkg/l0/ha"
	"github.com/robotalks/picoha.go/pkg/l0/slip"
)

// State is the pipeline state.
type State int

// Pipeline states.
const (
	StateIdle State = iota
	StateAccumulating
	StateFrameReady
	StateDecoding
	StateDispatching
	StateResponding
)

var stateNames = [...]string{"Idle", "Accumulating", "FrameReady", "Decoding", "Dispatching", "Responding"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer is notified of pipeline traffic.
type Observer interface {
	// FrameReceived is called for a completed, non-empty frame before it
	// is decoded. raw is only valid during the call.
	FrameReceived(raw []byte)
	// FrameDropped is called when a framing error discards input.
	FrameDropped(err error)
	// ResponseSent is called after a response is written.
	ResponseSent(code ha.Code)
}

// Config sizes the pipeline buffers.
type Config struct {
	// PayloadCapacity bounds the payload of received frames.
	PayloadCapacity int
	// RxBufferSize is the size of each read from the transport.
	RxBufferSize int
}

// DefaultConfig returns the default sizes.
func DefaultConfig() Config {
	return Config{PayloadCapacity: ha.DefaultPayloadCapacity, RxBufferSize: 64}
}

// Pipeline turns transport bytes into dispatched requests and writes back
// exactly one response per completed frame. It is not safe for concurrent
// use and never blocks when the transport Read doesn't.
type Pipeline struct {
	Dispatcher *Dispatcher
	Transport  io.ReadWriter
	Observer   Observer

	capacity int
	decoder  *slip.Decoder
	encoder  *slip.Encoder
	rx       []byte
	state    State
	skipping bool
}

// NewPipeline creates a Pipeline.
func NewPipeline(dispatcher *Dispatcher, transport io.ReadWriter, conf Config) *Pipeline {
	def := DefaultConfig()
	if conf.PayloadCapacity <= 0 {
		conf.PayloadCapacity = def.PayloadCapacity
	}
	if conf.RxBufferSize <= 0 {
		conf.RxBufferSize = def.RxBufferSize
	}
	frameSize := ha.FrameMinSize + conf.PayloadCapacity
	respSize := ha.FrameMinSize + gpio.MaxMsgSize
	return &Pipeline{
		Dispatcher: dispatcher,
		Transport:  transport,
		capacity:   conf.PayloadCapacity,
		decoder:    slip.NewDecoder(frameSize),
		encoder:    slip.NewEncoder(slip.EncodedLen(respSize)),
		rx:         make([]byte, conf.RxBufferSize),
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Skipping reports whether input is discarded until the next END.
func (p *Pipeline) Skipping() bool {
	return p.skipping
}

// Poll implements framework.Poller. A read error from the transport is
// returned to end the loop.
func (p *Pipeline) Poll(pc framework.PollContext) error {
	n, err := p.Transport.Read(p.rx)
	if n > 0 {
		if ferr := p.Feed(p.rx[:n]); ferr != nil {
			return ferr
		}
		if n == len(p.rx) {
			pc.TriggerNext()
		}
	}
	if err != nil {
		return fmt.Errorf("transport read: %w", err)
	}
	return nil
}

// Feed runs the state machine over input. Only a transport write failure is
// returned.
func (p *Pipeline) Feed(input []byte) error {
	for len(input) > 0 {
		if p.skipping {
			pos := bytes.IndexByte(input, slip.END)
			if pos < 0 {
				return nil
			}
			input = input[pos+1:]
			p.skipping = false
			p.state = StateIdle
			continue
		}
		n, complete, err := p.decoder.Feed(input)
		last := input[n-1]
		input = input[n:]
		if err != nil {
			p.dropFrame(err, last == slip.END)
			continue
		}
		if !complete {
			p.state = StateAccumulating
			continue
		}
		p.state = StateFrameReady
		if p.decoder.Len() == 0 {
			p.state = StateIdle
			continue
		}
		if err := p.processFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) dropFrame(err error, atEnd bool) {
	glog.V(2).Infof("drop frame: %v", err)
	if p.Observer != nil {
		p.Observer.FrameDropped(err)
	}
	p.decoder.Reset()
	p.state = StateIdle
	p.skipping = !atEnd
}

func (p *Pipeline) processFrame() error {
	raw := p.decoder.Bytes()
	glog.V(4).Infof("frame % x", raw)
	if p.Observer != nil {
		p.Observer.FrameReceived(raw)
	}
	p.state = StateDecoding
	var resp gpio.Response
	req, err := p.decode(raw)
	if err != nil {
		resp = ErrorResponse(err)
		glog.V(2).Infof("invalid frame: %v", err)
	} else {
		p.state = StateDispatching
		resp = p.Dispatcher.Dispatch(req)
	}
	p.decoder.Reset()
	return p.respond(resp)
}

func (p *Pipeline) decode(raw []byte) (gpio.Request, error) {
	f, err := ha.DecodeFrame(raw, p.capacity)
	if err != nil {
		return nil, err
	}
	return gpio.ParseRequest(f)
}

func (p *Pipeline) respond(resp gpio.Response) error {
	p.state = StateResponding
	defer func() {
		p.encoder.Reset()
		p.state = StateIdle
	}()
	f := resp.Frame()
	if _, err := f.EncodeTo(p.encoder); err != nil {
		// only a bounded response larger than the encoder could hit this.
		return fmt.Errorf("encode response: %w", err)
	}
	if err := p.encoder.Finish(); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := p.Transport.Write(p.encoder.Bytes()); err != nil {
		return fmt.Errorf("transport write: %w", err)
	}
	if errResp, ok := resp.(gpio.ErrorResp); ok {
		glog.V(2).Infof("error response: %v", errResp)
	}
	glog.V(4).Infof("response %s", f.Code)
	if p.Observer != nil {
		p.Observer.ResponseSent(f.Code)
	}
	return nil
}
