package conv

const hexd = "0123456789ABCDEF"

// Hex writes n as uppercase hex without 0x, zero-padded to digits, into the
// tail of buf and returns the used slice. Returns buf[:0] if buf is too short.
func Hex(buf []byte, n uint64, digits int) []byte {
	if digits <= 0 || len(buf) < digits {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// U8Hex writes 2-digit uppercase hex.
func U8Hex(buf []byte, n uint8) []byte { return Hex(buf, uint64(n), 2) }

// U16Hex writes 4-digit uppercase hex.
func U16Hex(buf []byte, n uint16) []byte { return Hex(buf, uint64(n), 4) }
