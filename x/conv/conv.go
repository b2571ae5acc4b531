// Package conv formats integers into caller buffers without fmt or strconv.
package conv

const hexLower = "0123456789abcdef"

// Itoa writes n in base 10 into the tail of buf and returns the used slice.
// buf should be at least 20 bytes for any int64.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 || i == 0 {
			break
		}
	}
	if n < 0 && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// U32Hex writes 8-digit uppercase hex without 0x, zero-padded.
func U32Hex(buf []byte, n uint32) []byte {
	if len(buf) < 8 {
		return buf[:0]
	}
	const hexd = "0123456789ABCDEF"
	i := len(buf)
	for j := 0; j < 8; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// Byte2 returns b as two lowercase hex digits.
func Byte2(b byte) [2]byte {
	return [2]byte{hexLower[b>>4], hexLower[b&0x0f]}
}
