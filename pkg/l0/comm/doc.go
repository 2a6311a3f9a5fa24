// Package comm provides the host side of the adapter protocol.
package comm

// Frames are SLIP delimited and carry a 16-bit code, a payload and a
// CRC16/CCITT-FALSE. The host sends one request and waits for its response
// before sending the next: the device answers every complete frame exactly
// once, in order, but silently drops frames damaged at the SLIP level, so
// responses carry no sequence number to match on.
