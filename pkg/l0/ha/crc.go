package ha

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum computes CRC16/CCITT-FALSE.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

func frameCRC(code Code, payload []byte) uint16 {
	b := code.Bytes()
	crc := crc16.Init(crcTable)
	crc = crc16.Update(crc, b[:], crcTable)
	crc = crc16.Update(crc, payload, crcTable)
	return crc16.Complete(crc, crcTable)
}
