package oto

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// FloatBufferTo16BitLE converts float samples to 16-bit little-endian
// integers, appending them to out. Samples are clamped to [-1, 1].
func FloatBufferTo16BitLE(buff []float32, out []byte) []byte {
	if len(buff) == 0 {
		return out
	}
	scaled := vek32.MaximumNumber(buff, -1)
	vek32.MinimumNumber_Inplace(scaled, 1)
	vek32.MulNumber_Inplace(scaled, math.MaxInt16)
	for _, v := range scaled {
		s := int16(v)
		out = append(out, byte(s), byte(s>>8))
	}
	return out
}
