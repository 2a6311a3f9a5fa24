// Package gpio defines the GPIO request and response messages.
package gpio

import (
	"fmt"
	"strings"
)

// Dir is the configured direction of a pin.
type Dir uint8

// Directions.
const (
	PullDownInput Dir = 0
	PullUpInput   Dir = 1
	Output        Dir = 2
)

// DirFromU8 validates a wire value.
func DirFromU8(x uint8) (Dir, bool) {
	if x > uint8(Output) {
		return 0, false
	}
	return Dir(x), true
}

// IsInput indicates one of the input directions.
func (d Dir) IsInput() bool {
	return d == PullDownInput || d == PullUpInput
}

// String implements fmt.Stringer.
func (d Dir) String() string {
	switch d {
	case PullDownInput:
		return "PullDownInput"
	case PullUpInput:
		return "PullUpInput"
	case Output:
		return "Output"
	}
	return fmt.Sprintf("Dir(%d)", uint8(d))
}

// ParseDir accepts names used by host tools: "in"/"pulldown", "pullup" and
// "out", or the numeric wire value.
func ParseDir(s string) (Dir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "input", "pulldown", "pd", "0":
		return PullDownInput, nil
	case "pullup", "pu", "1":
		return PullUpInput, nil
	case "out", "output", "2":
		return Output, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// Value is the logic level of a pin.
type Value uint8

// Levels.
const (
	Low  Value = 0
	High Value = 1
)

// ValueFromU8 validates a wire value.
func ValueFromU8(x uint8) (Value, bool) {
	if x > uint8(High) {
		return 0, false
	}
	return Value(x), true
}

// ValueOf converts a bool.
func ValueOf(high bool) Value {
	if high {
		return High
	}
	return Low
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v {
	case Low:
		return "Low"
	case High:
		return "High"
	}
	return fmt.Sprintf("Value(%d)", uint8(v))
}
