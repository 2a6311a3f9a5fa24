package hw

import (
	"sync"

	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

type simLine struct {
	dir    gpio.Dir
	output gpio.Value
	// externally driven level of an input, nil when floating.
	driven *gpio.Value
}

// Sim is an in-memory Provider. Inputs read their driven level, or the pull
// level when nothing drives them. Lines start as pull-down inputs.
type Sim struct {
	pins   *PinMap
	lock   sync.Mutex
	lines  map[int]*simLine
	closed bool
}

// NewSim creates a simulated provider.
func NewSim(pins *PinMap) *Sim {
	if pins == nil {
		pins = DefaultPinMap()
	}
	return &Sim{pins: pins, lines: make(map[int]*simLine)}
}

func (s *Sim) line(pin uint8) (*simLine, error) {
	if s.closed {
		return nil, ErrClosed
	}
	n, err := s.pins.Lookup(pin)
	if err != nil {
		return nil, err
	}
	l := s.lines[n]
	if l == nil {
		l = &simLine{dir: gpio.PullDownInput}
		s.lines[n] = l
	}
	return l, nil
}

// SetDirection implements Provider.
func (s *Sim) SetDirection(pin uint8, dir gpio.Dir) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return pinError(pin, "set direction", err)
	}
	l.dir = dir
	return nil
}

// Direction implements Provider.
func (s *Sim) Direction(pin uint8) (gpio.Dir, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return 0, pinError(pin, "get direction", err)
	}
	return l.dir, nil
}

// SetValue implements Provider.
func (s *Sim) SetValue(pin uint8, value gpio.Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return pinError(pin, "write", err)
	}
	if l.dir != gpio.Output {
		return pinError(pin, "write", ErrWrongDirection)
	}
	l.output = value
	return nil
}

// Value implements Provider.
func (s *Sim) Value(pin uint8) (gpio.Value, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return 0, pinError(pin, "read", err)
	}
	switch {
	case l.dir == gpio.Output:
		return l.output, nil
	case l.driven != nil:
		return *l.driven, nil
	case l.dir == gpio.PullUpInput:
		return gpio.High, nil
	}
	return gpio.Low, nil
}

// Drive sets the external level seen by an input.
func (s *Sim) Drive(pin uint8, value gpio.Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return pinError(pin, "drive", err)
	}
	l.driven = &value
	return nil
}

// Release stops driving an input.
func (s *Sim) Release(pin uint8) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.line(pin)
	if err != nil {
		return pinError(pin, "release", err)
	}
	l.driven = nil
	return nil
}

// Close implements io.Closer.
func (s *Sim) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	return nil
}
