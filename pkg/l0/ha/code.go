package ha

import "fmt"

// Code identifies the kind of a message.
type Code uint16

// Generic requests.
const (
	CodePing    Code = 0x0000
	CodeItfType Code = 0x0001
	CodeVersion Code = 0x0002
	CodeIDGet   Code = 0x0003
)

// GPIO requests.
const (
	CodeGpioDirSet Code = 0x0100
	CodeGpioDirGet Code = 0x0101
	CodeGpioRead   Code = 0x0102
	CodeGpioWrite  Code = 0x0103
)

// Responses.
const (
	CodeGpioValue      Code = 0xFEFF
	CodeGood           Code = 0xFFFF
	CodeErrGeneric     Code = 0xFFFE
	CodeErrCRC         Code = 0xFFFD
	CodeErrUnknownCode Code = 0xFFFC
	CodeErrInvalidArgs Code = 0xFFFB
	CodeErrBusy        Code = 0xFFFA
)

var codeNames = map[Code]string{
	CodePing:           "Ping",
	CodeItfType:        "ItfType",
	CodeVersion:        "Version",
	CodeIDGet:          "IdGet",
	CodeGpioDirSet:     "GpioDirSet",
	CodeGpioDirGet:     "GpioDirGet",
	CodeGpioRead:       "GpioRead",
	CodeGpioWrite:      "GpioWrite",
	CodeGpioValue:      "GpioValue",
	CodeGood:           "Good",
	CodeErrGeneric:     "ErrGeneric",
	CodeErrCRC:         "ErrCRC",
	CodeErrUnknownCode: "ErrUnknownCode",
	CodeErrInvalidArgs: "ErrInvalidArgs",
	CodeErrBusy:        "ErrBusy",
}

// LookupCode maps a wire value to a Code. Values outside the table are
// rejected.
func LookupCode(v uint16) (Code, bool) {
	c := Code(v)
	_, ok := codeNames[c]
	return c, ok
}

// CodeFromBytes decodes a big-endian wire code.
func CodeFromBytes(hi, lo byte) (Code, bool) {
	return LookupCode(uint16(hi)<<8 | uint16(lo))
}

// Codes returns all known codes in ascending order.
func Codes() []Code {
	return []Code{
		CodePing, CodeItfType, CodeVersion, CodeIDGet,
		CodeGpioDirSet, CodeGpioDirGet, CodeGpioRead, CodeGpioWrite,
		CodeGpioValue,
		CodeErrBusy, CodeErrInvalidArgs, CodeErrUnknownCode, CodeErrCRC, CodeErrGeneric, CodeGood,
	}
}

// IsValid checks the code is in the table.
func (c Code) IsValid() bool {
	_, ok := codeNames[c]
	return ok
}

// IsError indicates an error response code.
func (c Code) IsError() bool {
	return c >= CodeErrBusy && c <= CodeErrGeneric
}

// Bytes returns the big-endian wire form.
func (c Code) Bytes() [2]byte {
	return [2]byte{byte(c >> 8), byte(c)}
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(0x%04x)", uint16(c))
}

// Category partitions codes by role.
type Category int

// Categories.
const (
	CategoryUnknown Category = iota
	CategoryGenericRequest
	CategoryGpioRequest
	CategoryResponse
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryGenericRequest:
		return "GenericRequest"
	case CategoryGpioRequest:
		return "GpioRequest"
	case CategoryResponse:
		return "Response"
	}
	return "Unknown"
}

// CategoryOf returns the category of a code from its numeric range.
func CategoryOf(c Code) Category {
	switch {
	case c <= 0x00FF:
		return CategoryGenericRequest
	case c >= 0x0100 && c <= 0x01FF:
		return CategoryGpioRequest
	case c >= 0xFE00:
		return CategoryResponse
	}
	return CategoryUnknown
}

// Category returns CategoryOf(c).
func (c Code) Category() Category {
	return CategoryOf(c)
}

// IsRequest indicates a generic or GPIO request.
func (c Code) IsRequest() bool {
	cat := CategoryOf(c)
	return cat == CategoryGenericRequest || cat == CategoryGpioRequest
}
