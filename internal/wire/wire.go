// Package wire holds the 7-bit scaled value codec shared by every block of
// the binary patch record.
package wire

import "github.com/chewxy/math32"

// ScaleMax is the largest byte value a scaled field can carry.
const ScaleMax = 0x7F

// PackScaled maps a fraction in [0, 1] to a byte in [0, ScaleMax].
// Out-of-range fractions are clamped.
func PackScaled(f float32) byte {
	if f != f || f <= 0 {
		return 0
	}
	if f >= 1 {
		return ScaleMax
	}
	return byte(math32.Floor(f*ScaleMax + 0.5))
}

// UnpackScaled is the inverse of PackScaled.
func UnpackScaled(b byte) float32 {
	return float32(b&ScaleMax) / ScaleMax
}
