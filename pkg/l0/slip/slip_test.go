package slip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoder(t *testing.T) {
	testCases := []struct {
		name     string
		in       []byte
		consumed int
		complete bool
		expect   []byte
	}{
		{"empty frame", []byte{END}, 1, true, []byte{}},
		{"plain", []byte{1, 2, 3, END}, 4, true, []byte{1, 2, 3}},
		{"escaped end", []byte{1, ESC, ESCEND, 2, END}, 5, true, []byte{1, END, 2}},
		{"escaped esc", []byte{ESC, ESCESC, END}, 3, true, []byte{ESC}},
		{"incomplete", []byte{1, 2}, 2, false, []byte{1, 2}},
		{"pending escape", []byte{1, ESC}, 2, false, []byte{1}},
		{"stops at end", []byte{1, END, 2, 3}, 2, true, []byte{1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(16)
			n, complete, err := d.Feed(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.consumed, n)
			require.Equal(t, tc.complete, complete)
			require.Equal(t, tc.expect, d.Bytes())
		})
	}
}

func TestDecoderChunked(t *testing.T) {
	d := NewDecoder(16)
	stream := []byte{0x10, ESC, ESCEND, 0x20, ESC, ESCESC, 0x30, END}
	for i, b := range stream {
		n, complete, err := d.Feed([]byte{b})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, i == len(stream)-1, complete)
	}
	require.Equal(t, []byte{0x10, END, 0x20, ESC, 0x30}, d.Bytes())
}

func TestDecoderNoAutoReset(t *testing.T) {
	d := NewDecoder(16)
	_, complete, err := d.Feed([]byte{1, 2, END})
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, []byte{1, 2}, d.Bytes())

	_, _, err = d.Feed([]byte{3, END})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, d.Bytes())

	d.Reset()
	require.Zero(t, d.Len())
	require.False(t, d.Escaping())
}

func TestDecoderBadEsc(t *testing.T) {
	d := NewDecoder(16)
	n, complete, err := d.Feed([]byte{1, 2, ESC, 0x42, 3, END})
	require.False(t, complete)
	require.Equal(t, 4, n)
	var derr *DecoderError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, BadEsc, derr.Code)
	require.Equal(t, 4, derr.Pos)
	require.True(t, errors.Is(err, ErrBadEsc))

	d.Reset()
	_, complete, err = d.Feed([]byte{7, END})
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, []byte{7}, d.Bytes())
}

func TestDecoderBufferFull(t *testing.T) {
	d := NewDecoder(2)
	n, _, err := d.Feed([]byte{1, 2, 3, END})
	require.Equal(t, 3, n)
	require.True(t, errors.Is(err, ErrBufferFull))
	require.Equal(t, 2, d.Len())

	d.Reset()
	_, _, err = d.Feed([]byte{1, 2, ESC, ESCEND})
	var derr *DecoderError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, BufferFull, derr.Code)
	require.Equal(t, 4, derr.Pos)
}

func TestBufferFixedCapacity(t *testing.T) {
	b := newBuffer(2)
	require.Equal(t, 2, b.Cap())
	require.NoError(t, b.Put(1))
	require.NoError(t, b.Put(2))
	require.Equal(t, ErrBufferFull, b.Put(3))
	require.Equal(t, []byte{1, 2}, b.Bytes())
	b.Reset()
	require.Zero(t, b.Len())
	require.Equal(t, 2, b.Cap())
	require.Empty(t, b.Bytes())
}

func TestEncoder(t *testing.T) {
	e := NewEncoder(16)
	require.NoError(t, e.Feed([]byte{1, END, 2, ESC, 3}))
	require.NoError(t, e.Finish())
	require.Equal(t, []byte{1, ESC, ESCEND, 2, ESC, ESCESC, 3, END}, e.Bytes())

	e.Reset()
	require.Zero(t, e.Len())
	require.NoError(t, e.Begin())
	require.NoError(t, e.Finish())
	require.Equal(t, []byte{END, END}, e.Bytes())
}

func TestEncoderBufferFull(t *testing.T) {
	e := NewEncoder(3)
	require.NoError(t, e.Feed([]byte{1, 2}))
	require.Equal(t, ErrBufferFull, e.Feed([]byte{END}))
	require.Equal(t, []byte{1, 2}, e.Bytes())
	require.NoError(t, e.Finish())
	require.Equal(t, ErrBufferFull, e.Finish())

	e.Reset()
	n, err := e.Write([]byte{1, 2, 3, 4})
	require.Equal(t, ErrBufferFull, err)
	require.Zero(t, n)
	require.Zero(t, e.Len())
}

func TestRoundTrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	payloads := [][]byte{
		{},
		{END},
		{ESC},
		{END, ESC, END, ESC},
		{ESC, ESCEND},
		{ESC, ESCESC},
		all,
	}
	for _, payload := range payloads {
		encoded := Encode(payload)
		require.True(t, len(encoded) <= EncodedLen(len(payload)))
		d := NewDecoder(len(payload))
		n, complete, err := d.Feed(encoded)
		require.NoError(t, err)
		require.True(t, complete)
		require.Equal(t, len(encoded), n)
		require.Equal(t, payload, d.Bytes())
	}
}
