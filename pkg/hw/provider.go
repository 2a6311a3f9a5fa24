// Package hw provides the GPIO capability behind a device: a pin map from
// wire indices to hardware lines, and providers driving those lines.
package hw

import (
	"errors"
	"fmt"

	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

var (
	// ErrInvalidPin indicates a wire pin with no usable hardware line.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrWrongDirection indicates driving a pin not configured as output.
	ErrWrongDirection = errors.New("wrong direction")
	// ErrClosed indicates the provider has been closed.
	ErrClosed = errors.New("provider closed")
)

// Provider is the GPIO capability used by the dispatcher. Pins are wire
// indices; implementations translate them through a PinMap.
type Provider interface {
	SetDirection(pin uint8, dir gpio.Dir) error
	Direction(pin uint8) (gpio.Dir, error)
	SetValue(pin uint8, value gpio.Value) error
	Value(pin uint8) (gpio.Value, error)
}

// PinError decorates a provider failure with the pin and operation.
type PinError struct {
	Pin uint8
	Op  string
	Err error
}

// Error implements error.
func (e *PinError) Error() string {
	return fmt.Sprintf("pin %d %s: %v", e.Pin, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PinError) Unwrap() error {
	return e.Err
}

func pinError(pin uint8, op string, err error) error {
	if err == nil {
		return nil
	}
	return &PinError{Pin: pin, Op: op, Err: err}
}
