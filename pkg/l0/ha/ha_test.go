package ha

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, uint16(0x29B1), Checksum([]byte("123456789")))
	require.Equal(t, uint16(0xFFFF), Checksum(nil))
}

func TestCodeTable(t *testing.T) {
	testCases := []struct {
		value    uint16
		code     Code
		category Category
	}{
		{0x0000, CodePing, CategoryGenericRequest},
		{0x0001, CodeItfType, CategoryGenericRequest},
		{0x0002, CodeVersion, CategoryGenericRequest},
		{0x0003, CodeIDGet, CategoryGenericRequest},
		{0x0100, CodeGpioDirSet, CategoryGpioRequest},
		{0x0101, CodeGpioDirGet, CategoryGpioRequest},
		{0x0102, CodeGpioRead, CategoryGpioRequest},
		{0x0103, CodeGpioWrite, CategoryGpioRequest},
		{0xFEFF, CodeGpioValue, CategoryResponse},
		{0xFFFF, CodeGood, CategoryResponse},
		{0xFFFE, CodeErrGeneric, CategoryResponse},
		{0xFFFD, CodeErrCRC, CategoryResponse},
		{0xFFFC, CodeErrUnknownCode, CategoryResponse},
		{0xFFFB, CodeErrInvalidArgs, CategoryResponse},
		{0xFFFA, CodeErrBusy, CategoryResponse},
	}
	require.Len(t, Codes(), len(testCases))
	for _, tc := range testCases {
		code, ok := LookupCode(tc.value)
		require.True(t, ok, "0x%04x", tc.value)
		require.Equal(t, tc.code, code)
		require.Equal(t, tc.value, uint16(code))
		require.Equal(t, tc.category, code.Category())
		b := code.Bytes()
		back, ok := CodeFromBytes(b[0], b[1])
		require.True(t, ok)
		require.Equal(t, code, back)
	}

	known := 0
	for v := 0; v <= 0xFFFF; v++ {
		if _, ok := LookupCode(uint16(v)); ok {
			known++
		}
	}
	require.Equal(t, len(testCases), known)

	for _, v := range []uint16{0x0004, 0x00FF, 0x0104, 0x0200, 0xFEFE, 0xFFF9} {
		_, ok := LookupCode(v)
		require.False(t, ok, "0x%04x", v)
		require.False(t, Code(v).IsValid())
	}
	require.Equal(t, "Code(0x1234)", Code(0x1234).String())
	require.Equal(t, CategoryUnknown, CategoryOf(Code(0x8000)))
}

func TestCodeIsError(t *testing.T) {
	for _, c := range Codes() {
		switch c {
		case CodeErrGeneric, CodeErrCRC, CodeErrUnknownCode, CodeErrInvalidArgs, CodeErrBusy:
			require.True(t, c.IsError(), c.String())
		default:
			require.False(t, c.IsError(), c.String())
		}
	}
}

func TestFrameEncode(t *testing.T) {
	// crc over 0x00 0x00 is 0x1D0F for CCITT-FALSE.
	ping := Frame{Code: CodePing}
	require.Equal(t, uint16(0x1D0F), ping.CRC())
	require.Equal(t, []byte{0x00, 0x00, 0x1D, 0x0F}, ping.Bytes())

	f := Frame{Code: CodeGpioWrite, Payload: []byte{5, 1}}
	expect := []byte{0x01, 0x03, 5, 1}
	crc := Checksum(expect)
	expect = append(expect, byte(crc>>8), byte(crc))
	require.Equal(t, expect, f.Bytes())
	require.Equal(t, len(expect), f.Len())

	var buf bytes.Buffer
	n, err := f.EncodeTo(&buf)
	require.NoError(t, err)
	require.Equal(t, len(expect), n)
	require.Equal(t, expect, buf.Bytes())
}

func TestFrameEqual(t *testing.T) {
	f := Frame{Code: CodeGood, Payload: []byte{1, 2}}
	require.True(t, f.Equal(Frame{Code: CodeGood, Payload: []byte{1, 2}}))
	require.True(t, Frame{Code: CodePing}.Equal(Frame{Code: CodePing, Payload: []byte{}}))
	require.False(t, f.Equal(Frame{Code: CodeGpioValue, Payload: []byte{1, 2}}))
	require.False(t, f.Equal(Frame{Code: CodeGood, Payload: []byte{1, 3}}))
	require.False(t, f.Equal(Frame{Code: CodeGood, Payload: []byte{1}}))
}

func TestFrameRoundTrip(t *testing.T) {
	big := make([]byte, DefaultPayloadCapacity)
	for i := range big {
		big[i] = byte(i * 7)
	}
	for _, code := range Codes() {
		for _, payload := range [][]byte{nil, {0}, {0xC0, 0xDB}, big} {
			f := Frame{Code: code, Payload: payload}
			decoded, err := DecodeFrame(f.Bytes(), DefaultPayloadCapacity)
			require.NoError(t, err)
			require.True(t, f.Equal(decoded), "%s %v", code, payload)
		}
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		for _, b := range [][]byte{nil, {0}, {0, 0}, {0, 0, 0x1D}} {
			_, err := DecodeFrame(b, DefaultPayloadCapacity)
			require.Equal(t, ErrInvalidLength, err)
		}
	})

	t.Run("crc mismatch", func(t *testing.T) {
		b := Frame{Code: CodePing}.Bytes()
		b[3] ^= 0x01
		_, err := DecodeFrame(b, DefaultPayloadCapacity)
		var crcErr *CRCError
		require.True(t, errors.As(err, &crcErr))
		require.Equal(t, uint16(0x1D0F), crcErr.Computed)
		require.Equal(t, uint16(0x1D0E), crcErr.Received)
	})

	t.Run("unknown code", func(t *testing.T) {
		b := Frame{Code: Code(0x0042)}.Bytes()
		_, err := DecodeFrame(b, DefaultPayloadCapacity)
		require.Equal(t, ErrUnknownCode, err)
	})

	t.Run("payload above capacity", func(t *testing.T) {
		b := Frame{Code: CodeGpioWrite, Payload: []byte{1, 2, 3}}.Bytes()
		_, err := DecodeFrame(b, 2)
		require.Equal(t, ErrInvalidLength, err)
		f, err := DecodeFrame(b, 3)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3}, f.Payload)
	})
}

func TestCRCSensitivity(t *testing.T) {
	frames := []Frame{
		{Code: CodePing},
		{Code: CodeGpioWrite, Payload: []byte{5, 1}},
		{Code: CodeErrGeneric, Payload: []byte("invalid pin")},
	}
	for _, f := range frames {
		b := f.Bytes()
		for i := range b {
			for bit := uint(0); bit < 8; bit++ {
				flipped := append([]byte(nil), b...)
				flipped[i] ^= 1 << bit
				_, err := DecodeFrame(flipped, DefaultPayloadCapacity)
				var crcErr *CRCError
				require.True(t, errors.As(err, &crcErr), "byte %d bit %d", i, bit)
			}
		}
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]byte{1, 2, 3})
	v16, ok := p.ConsumeU16()
	require.True(t, ok)
	require.Equal(t, uint16(0x0102), v16)
	_, ok = p.ConsumeU16()
	require.False(t, ok)
	require.Equal(t, 1, p.Remaining())
	v8, ok := p.ConsumeU8()
	require.True(t, ok)
	require.Equal(t, uint8(3), v8)
	_, ok = p.ConsumeU8()
	require.False(t, ok)
	_, ok = p.ConsumeU16()
	require.False(t, ok)
	require.Zero(t, p.Remaining())

	empty := NewArgParser(nil)
	_, ok = empty.ConsumeU16()
	require.False(t, ok)
	_, ok = empty.ConsumeU8()
	require.False(t, ok)
}
