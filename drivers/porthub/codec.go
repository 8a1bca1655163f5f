package porthub

// Frame sizes (payload only; the register byte is prepended on the wire).
const (
	PixelFrameLen = 5
	FillFrameLen  = 7
)

// Encode16 returns v high byte first.
func Encode16(v uint16) [2]byte {
	return [2]byte{byte(v >> 8), byte(v)}
}

// Decode16 combines the first two bytes of b, high byte first.
// b must hold at least two bytes.
func Decode16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// PixelFrame lays out: index_hi, index_lo, r, g, b.
func PixelFrame(index uint16, r uint8, g int8, b uint8) [PixelFrameLen]byte {
	return [PixelFrameLen]byte{
		byte(index >> 8), byte(index),
		r, uint8(g), b,
	}
}

// FillFrame lays out: first_hi, first_lo, count_hi, count_lo, r, g, b.
func FillFrame(first, count uint16, r uint8, g int8, b uint8) [FillFrameLen]byte {
	return [FillFrameLen]byte{
		byte(first >> 8), byte(first),
		byte(count >> 8), byte(count),
		r, uint8(g), b,
	}
}
