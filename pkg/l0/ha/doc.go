// Package ha implements the message layer of the adapter protocol.
package ha

// A message is carried in one SLIP frame:
//
//	[CodeHi, CodeLo, Payload(0..N bytes), CrcHi, CrcLo]
//
// The CRC is CRC16/CCITT-FALSE computed over code and payload. Codes are
// 16-bit identifiers from a closed table partitioned into generic
// requests, interface specific requests and responses.
