package comm

const crc8Poly byte = 0x07

var crc8Table = func() (t [256]byte) {
	for i := range t {
		crc := byte(i)
		for b := 0; b < 8; b++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crc8Poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return
}()

// CRC8 computes CRC-8 (poly 0x07, init 0, no reflection).
func CRC8(data ...[]byte) byte {
	var crc byte
	for _, p := range data {
		for _, b := range p {
			crc = crc8Table[crc^b]
		}
	}
	return crc
}
