package hw

import (
	"fmt"
)

// Unusable marks a wire index without hardware line.
const Unusable = -1

// PinMap translates wire pin indices to hardware lines.
type PinMap struct {
	lines [256]int16
}

// NewPinMap creates a map from a list where the index is the wire pin and
// the value is the hardware line, Unusable for a hole. Indices beyond the
// list are unusable.
func NewPinMap(lines []int) (*PinMap, error) {
	if len(lines) > 256 {
		return nil, fmt.Errorf("too many pins: %d", len(lines))
	}
	m := &PinMap{}
	for n := range m.lines {
		m.lines[n] = Unusable
	}
	for n, line := range lines {
		if line < Unusable || line > 0x7fff {
			return nil, fmt.Errorf("pin %d: invalid line %d", n, line)
		}
		m.lines[n] = int16(line)
	}
	return m, nil
}

// DefaultPinMap is the layout of the Pico board: lines 0-22 and 25-28 map to
// themselves, 23 and 24 are not routed to the header.
func DefaultPinMap() *PinMap {
	lines := make([]int, 29)
	for n := range lines {
		lines[n] = n
	}
	lines[23], lines[24] = Unusable, Unusable
	m, _ := NewPinMap(lines)
	return m
}

// Lookup returns the hardware line of a wire pin.
func (m *PinMap) Lookup(pin uint8) (int, error) {
	if line := m.lines[pin]; line != Unusable {
		return int(line), nil
	}
	return 0, ErrInvalidPin
}

// Pins lists the usable wire pins in order.
func (m *PinMap) Pins() []uint8 {
	var pins []uint8
	for n, line := range m.lines {
		if line != Unusable {
			pins = append(pins, uint8(n))
		}
	}
	return pins
}
