package comm

import (
	"errors"
	"fmt"

	"github.com/robotalks/picoha.go/pkg/l0/gpio"
	"github.com/robotalks/picoha.go/pkg/l0/ha"
)

var (
	// ErrNoReply indicates no response received before the deadline.
	ErrNoReply = errors.New("no reply")
	// ErrUnexpectedResponse indicates a response not matching the request.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// CommandError wraps error responses from the device.
type CommandError struct {
	Code    ha.Code
	Message string
}

// Error implements error.
func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("command error %s", e.Code)
	}
	return fmt.Sprintf("command error %s: %s", e.Code, e.Message)
}

func commandError(resp gpio.ErrorResp) *CommandError {
	return &CommandError{Code: resp.ErrCode, Message: resp.Msg}
}

func unexpected(resp gpio.Response) error {
	return fmt.Errorf("%w: %#v", ErrUnexpectedResponse, resp)
}
