package comm

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/picoha.go/pkg/l0/ha"
	"github.com/robotalks/picoha.go/pkg/l0/slip"
)

// FrameHandler is called when a valid frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, ha.Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, ha.Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame ha.Frame) {
	f(ctx, frame)
}

// FIFO sends and receives frames over a byte stream.
type FIFO struct {
	ReadWriter io.ReadWriter
	Handler    FrameHandler
	// OnDrop is called for received bytes which don't form a valid frame.
	OnDrop func(error)
	// ReadTimeout is set when ReadWriter already returns periodically from
	// Read (serial ports with read timeout), to read without a goroutine.
	ReadTimeout bool

	capacity int
	lock     sync.Mutex
	encoder  *slip.Encoder
	decoder  *slip.Decoder
	skipping bool
}

// NewFIFO creates a FIFO accepting payloads up to ha.DefaultPayloadCapacity.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return NewFIFOWithCapacity(rw, ha.DefaultPayloadCapacity)
}

// NewFIFOWithCapacity creates a FIFO with a specific payload capacity.
func NewFIFOWithCapacity(rw io.ReadWriter, capacity int) *FIFO {
	frameSize := ha.FrameMinSize + capacity
	return &FIFO{
		ReadWriter: rw,
		capacity:   capacity,
		encoder:    slip.NewEncoder(slip.EncodedLen(frameSize)),
		decoder:    slip.NewDecoder(frameSize),
	}
}

// Send encodes and writes a frame. A leading END flushes noise left on the
// line before the frame.
func (f *FIFO) Send(frame ha.Frame) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.encoder.Reset()
	if err := f.encoder.Begin(); err != nil {
		return err
	}
	if _, err := frame.EncodeTo(f.encoder); err != nil {
		return err
	}
	if err := f.encoder.Finish(); err != nil {
		return err
	}
	glog.V(4).Infof("send % x", f.encoder.Bytes())
	_, err := f.ReadWriter.Write(f.encoder.Bytes())
	return err
}

// Run receives frames until the stream fails or ctx is canceled.
func (f *FIFO) Run(ctx context.Context) error {
	if f.ReadTimeout {
		buf := make([]byte, 64)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := f.ReadWriter.Read(buf)
			f.feed(ctx, buf[:n])
			if err != nil && !os.IsTimeout(err) {
				return err
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			f.feed(ctx, chunk)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *FIFO) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, 64)
		n, err := f.ReadWriter.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (f *FIFO) feed(ctx context.Context, input []byte) {
	for len(input) > 0 {
		if f.skipping {
			pos := bytes.IndexByte(input, slip.END)
			if pos < 0 {
				return
			}
			input, f.skipping = input[pos+1:], false
			continue
		}
		n, complete, err := f.decoder.Feed(input)
		last := input[n-1]
		input = input[n:]
		if err != nil {
			f.decoder.Reset()
			f.skipping = last != slip.END
			f.drop(err)
			continue
		}
		if !complete {
			continue
		}
		if f.decoder.Len() > 0 {
			f.frameReady(ctx)
		}
		f.decoder.Reset()
	}
}

func (f *FIFO) frameReady(ctx context.Context) {
	raw := append([]byte(nil), f.decoder.Bytes()...)
	glog.V(4).Infof("recv % x", raw)
	frame, err := ha.DecodeFrame(raw, f.capacity)
	if err != nil {
		f.drop(err)
		return
	}
	if h := f.Handler; h != nil {
		h.HandleFrame(ctx, frame)
	}
}

func (f *FIFO) drop(err error) {
	glog.V(2).Infof("drop frame: %v", err)
	if f.OnDrop != nil {
		f.OnDrop(err)
	}
}
