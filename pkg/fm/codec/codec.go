package codec

// Mask12 selects the low 12 bits of a packed sample.
const Mask12 uint32 = 0x00000FFF

const (
	// PackedGroupSize is the number of bytes holding two 12-bit samples.
	PackedGroupSize = 3
	// PCM16SampleSize is the number of bytes in a network sample.
	PCM16SampleSize = 2
)

// Unpack12 splits a 3-byte group into two 12-bit samples. a is the high 12
// bits of the big-endian 24-bit word, b the low 12 bits.
func Unpack12(group []byte) (a, b uint16) {
	_ = group[2]
	word := uint32(group[0])<<16 | uint32(group[1])<<8 | uint32(group[2])
	return uint16(word >> 12), uint16(word & Mask12)
}

// Pack12 is the inverse of Unpack12. Values wider than 12 bits are masked.
func Pack12(dst []byte, a, b uint16) {
	_ = dst[2]
	word := (uint32(a)&Mask12)<<12 | uint32(b)&Mask12
	dst[0] = byte(word >> 16)
	dst[1] = byte(word >> 8)
	dst[2] = byte(word)
}

// Decode12 maps an unsigned 12-bit sample to [-1.0, +1.0) with 2048 at 0.0.
func Decode12(u uint16) float32 {
	return (float32(u) - 2048.0) / 2048.0
}

// Encode12 maps a normalized sample back to the unsigned 12-bit scale,
// rounding half up. The result is not clamped; Pack12 masks it.
func Encode12(f float32) uint16 {
	return uint16(int32(float32((f+1.0)*2048.0) + 0.5))
}

// Decode16 maps an unsigned 16-bit network sample to a normalized float.
func Decode16(u uint16) float32 {
	return (float32(u) / 32767.0) - 1.0
}

// Encode16 maps a normalized sample to [0, 65534], rounding half up.
// Samples outside [-1, 1] wrap rather than clamp, matching deployed peers.
func Encode16(f float32) uint16 {
	return uint16(int32(float32((f+1.0)*32767.0) + 0.5))
}
