// Package slip provides SLIP framing over a byte stream.
package slip

// Frames are delimited by END bytes. END and ESC bytes inside a frame are
// escaped as ESC ESC_END and ESC ESC_ESC respectively.
//
// Both Decoder and Encoder work on buffers with a capacity fixed at
// construction. Neither grows its buffer: writes beyond capacity fail with
// ErrBufferFull and the caller decides how to resynchronize.
