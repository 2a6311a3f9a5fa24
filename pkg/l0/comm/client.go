package comm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picoha.go/pkg/l0/gpio"
	"github.com/robotalks/picoha.go/pkg/l0/ha"
)

const (
	// DefaultTimeout bounds a command when the context has no deadline.
	DefaultTimeout = time.Second
	// DefaultSettle is how long the line stays quiet after a timeout.
	DefaultSettle = 50 * time.Millisecond
)

// Result is the result of a command.
type Result struct {
	Err      error
	Response gpio.Response
}

// Client provides client side operations over FIFO. Commands are sent one
// at a time.
//
// A reply is accepted only while a command waits for it and only when its
// code fits the request: GpioValue for Read, Good for the rest, any error
// code for all. After a timeout the next command waits Settle before
// sending, and replies arriving meanwhile are dropped.
type Client struct {
	Timeout time.Duration
	Settle  time.Duration

	fifo        *FIFO
	cmdLock     sync.Mutex
	settleUntil time.Time
	pending     chan ha.Frame
	expect      ha.Code
	pendLock    sync.Mutex
}

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{fifo: fifo, Timeout: DefaultTimeout, Settle: DefaultSettle}
	c.fifo.Handler = c
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// Run wraps FIFO.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}

// HandleFrame implements FrameHandler.
func (c *Client) HandleFrame(ctx context.Context, f ha.Frame) {
	c.pendLock.Lock()
	ch := c.pending
	if ch != nil && f.Code != c.expect && !f.Code.IsError() {
		c.pendLock.Unlock()
		glog.V(2).Infof("response %s dropped, expect %s", f.Code, c.expect)
		return
	}
	c.pending = nil
	c.pendLock.Unlock()
	if ch == nil {
		glog.V(2).Infof("stale response %s dropped", f.Code)
		return
	}
	ch <- f
}

func replyCode(req gpio.Request) ha.Code {
	if _, ok := req.(gpio.Read); ok {
		return ha.CodeGpioValue
	}
	return ha.CodeGood
}

// Do sends a request and waits for the response. Error responses are
// returned as *CommandError.
func (c *Client) Do(ctx context.Context, req gpio.Request) (gpio.Response, error) {
	c.cmdLock.Lock()
	defer c.cmdLock.Unlock()

	if _, ok := ctx.Deadline(); !ok && c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if wait := time.Until(c.settleUntil); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	ch := make(chan ha.Frame, 1)
	c.pendLock.Lock()
	c.pending = ch
	c.expect = replyCode(req)
	c.pendLock.Unlock()
	defer func() {
		c.pendLock.Lock()
		c.pending = nil
		c.pendLock.Unlock()
	}()

	if err := c.fifo.Send(gpio.RequestFrame(req)); err != nil {
		return nil, err
	}
	select {
	case f := <-ch:
		resp, err := gpio.ParseResponse(f)
		if err != nil {
			return nil, err
		}
		if errResp, ok := resp.(gpio.ErrorResp); ok {
			return nil, commandError(errResp)
		}
		return resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.settleUntil = time.Now().Add(c.Settle)
			return nil, ErrNoReply
		}
		return nil, ctx.Err()
	}
}

// Go runs Do in the background and delivers the result on the returned chan.
func (c *Client) Go(ctx context.Context, req gpio.Request) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		resp, err := c.Do(ctx, req)
		ch <- Result{Err: err, Response: resp}
	}()
	return ch
}

func (c *Client) doGood(ctx context.Context, req gpio.Request) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if _, ok := resp.(gpio.Good); !ok {
		return unexpected(resp)
	}
	return nil
}

func (c *Client) doData(ctx context.Context, req gpio.Request) (gpio.GoodData, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return gpio.GoodData{}, err
	}
	switch r := resp.(type) {
	case gpio.GoodData:
		return r, nil
	case gpio.Good:
		return gpio.GoodData{}, nil
	}
	return gpio.GoodData{}, unexpected(resp)
}

// Ping checks the device is responsive.
func (c *Client) Ping(ctx context.Context) error {
	return c.doGood(ctx, gpio.Ping{})
}

// InterfaceType queries the interface type.
func (c *Client) InterfaceType(ctx context.Context) (uint16, error) {
	data, err := c.doData(ctx, gpio.ItfType{})
	if err != nil {
		return 0, err
	}
	resp, err := gpio.DecodeItfTypeResp(data)
	return resp.Type, err
}

// Version queries the firmware version.
func (c *Client) Version(ctx context.Context) (string, error) {
	data, err := c.doData(ctx, gpio.Version{})
	return string(data.Data), err
}

// ID queries the device id.
func (c *Client) ID(ctx context.Context) ([]byte, error) {
	data, err := c.doData(ctx, gpio.IDGet{})
	return data.Data, err
}

// SetDirection configures a pin.
func (c *Client) SetDirection(ctx context.Context, pin uint8, dir gpio.Dir) error {
	return c.doGood(ctx, gpio.DirSet{Pin: pin, Dir: dir})
}

// Direction queries the direction of a pin.
func (c *Client) Direction(ctx context.Context, pin uint8) (gpio.Dir, error) {
	data, err := c.doData(ctx, gpio.DirGet{Pin: pin})
	if err != nil {
		return 0, err
	}
	resp, err := gpio.DecodeDirResp(data)
	if err != nil {
		return 0, err
	}
	if resp.Pin != pin {
		return 0, unexpected(resp)
	}
	return resp.Dir, nil
}

// Write drives an output pin.
func (c *Client) Write(ctx context.Context, pin uint8, value gpio.Value) error {
	return c.doGood(ctx, gpio.Write{Pin: pin, Value: value})
}

// Read samples a pin.
func (c *Client) Read(ctx context.Context, pin uint8) (gpio.Value, error) {
	resp, err := c.Do(ctx, gpio.Read{Pin: pin})
	if err != nil {
		return 0, err
	}
	r, ok := resp.(gpio.ValueResp)
	if !ok || r.Pin != pin {
		return 0, unexpected(resp)
	}
	return r.Value, nil
}
