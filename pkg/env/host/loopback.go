package host

import (
	"io"
	"sync"

	"github.com/robotalks/picoha.go/pkg/hw"
	"github.com/robotalks/picoha.go/pkg/l0/device"
)

// Loopback is an in-process adapter. Bytes written are fed to a device
// pipeline, and its responses are read back.
type Loopback struct {
	Provider hw.Provider

	lock     sync.Mutex
	pipeline *device.Pipeline
	r        *io.PipeReader
	w        *io.PipeWriter
}

type loopbackDevice struct {
	*io.PipeWriter
}

func (loopbackDevice) Read([]byte) (int, error) {
	return 0, nil
}

// NewLoopback creates a Loopback.
func NewLoopback(identity device.Identity, provider hw.Provider) *Loopback {
	r, w := io.Pipe()
	return &Loopback{
		Provider: provider,
		pipeline: device.NewPipeline(
			device.NewDispatcher(identity, provider),
			loopbackDevice{w},
			device.DefaultConfig()),
		r: r,
		w: w,
	}
}

// Read implements io.Reader.
func (l *Loopback) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

// Write implements io.Writer. It returns once the responses are read.
func (l *Loopback) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if err := l.pipeline.Feed(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (l *Loopback) Close() error {
	l.w.Close()
	return l.r.Close()
}
