package hw

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	rpio "github.com/stianeikeland/go-rpio/v4"

	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

// RPIO drives Raspberry Pi GPIO lines through /dev/gpiomem. The hardware
// cannot report pull settings, so the configured direction is remembered.
type RPIO struct {
	pins *PinMap
	lock sync.Mutex
	dirs map[int]gpio.Dir
	open bool
}

// OpenRPIO maps the GPIO registers and configures nothing until requested.
func OpenRPIO(pins *PinMap) (*RPIO, error) {
	if pins == nil {
		pins = DefaultPinMap()
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("rpio open: %w", err)
	}
	glog.Infof("rpio: opened, %d usable pins", len(pins.Pins()))
	return &RPIO{pins: pins, dirs: make(map[int]gpio.Dir), open: true}, nil
}

func (p *RPIO) lookup(pin uint8) (rpio.Pin, int, error) {
	if !p.open {
		return 0, 0, ErrClosed
	}
	n, err := p.pins.Lookup(pin)
	if err != nil {
		return 0, 0, err
	}
	return rpio.Pin(n), n, nil
}

// SetDirection implements Provider.
func (p *RPIO) SetDirection(pin uint8, dir gpio.Dir) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	line, n, err := p.lookup(pin)
	if err != nil {
		return pinError(pin, "set direction", err)
	}
	switch dir {
	case gpio.PullDownInput:
		line.Input()
		line.PullDown()
	case gpio.PullUpInput:
		line.Input()
		line.PullUp()
	case gpio.Output:
		line.PullOff()
		line.Output()
	default:
		return pinError(pin, "set direction", fmt.Errorf("unsupported direction %v", dir))
	}
	p.dirs[n] = dir
	return nil
}

// Direction implements Provider.
func (p *RPIO) Direction(pin uint8) (gpio.Dir, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	_, n, err := p.lookup(pin)
	if err != nil {
		return 0, pinError(pin, "get direction", err)
	}
	return p.dirs[n], nil
}

// SetValue implements Provider.
func (p *RPIO) SetValue(pin uint8, value gpio.Value) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	line, n, err := p.lookup(pin)
	if err != nil {
		return pinError(pin, "write", err)
	}
	if p.dirs[n] != gpio.Output {
		return pinError(pin, "write", ErrWrongDirection)
	}
	if value == gpio.High {
		line.High()
	} else {
		line.Low()
	}
	return nil
}

// Value implements Provider.
func (p *RPIO) Value(pin uint8) (gpio.Value, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	line, _, err := p.lookup(pin)
	if err != nil {
		return 0, pinError(pin, "read", err)
	}
	return gpio.ValueOf(line.Read() == rpio.High), nil
}

// Close unmaps the GPIO registers.
func (p *RPIO) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.open {
		return nil
	}
	p.open = false
	return rpio.Close()
}
