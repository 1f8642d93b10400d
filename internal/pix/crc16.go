package pix

// ChecksumCRC16 computes CRC16-CCITT over the payload: polynomial 0x1021,
// initial value 0xFFFF, no final XOR. This is the checksum variant mandated
// by the BR Code terminal field (id 63).
func ChecksumCRC16(payload string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(payload); i++ {
		crc ^= uint16(payload[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
