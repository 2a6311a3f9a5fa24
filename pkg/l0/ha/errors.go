package ha

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength indicates a frame too short for code and CRC, or a
	// payload above capacity.
	ErrInvalidLength = errors.New("ha: invalid length")
	// ErrUnknownCode indicates a code outside the table.
	ErrUnknownCode = errors.New("ha: unknown code")
	// ErrInvalidArg indicates a missing or out of range argument.
	ErrInvalidArg = errors.New("ha: invalid argument")
)

// CRCError reports a CRC mismatch.
type CRCError struct {
	Computed uint16
	Received uint16
}

// Error implements error.
func (e *CRCError) Error() string {
	return fmt.Sprintf("ha: invalid crc: computed 0x%04x, received 0x%04x", e.Computed, e.Received)
}

// NotARequestError indicates a response code received where a request is
// expected.
type NotARequestError struct {
	Code Code
}

// Error implements error.
func (e *NotARequestError) Error() string {
	return fmt.Sprintf("ha: not a request: %s", e.Code)
}
