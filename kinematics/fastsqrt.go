package kinematics

import "math"

// FastSqrtMaxError is the relative error bound of fastSqrt against
// math.Sqrt over the positive float32 range.
const FastSqrtMaxError = 1e-5

// fastInvSqrt approximates 1/sqrt(n) with the bit-level initial guess and
// two Newton-Raphson steps. n must be positive.
func fastInvSqrt(n float32) float32 {
	half := 0.5 * n
	i := math.Float32bits(n)
	i = 0x5f3759df - i>>1
	y := math.Float32frombits(i)
	y *= 1.5 - half*y*y
	y *= 1.5 - half*y*y
	return y
}

// fastSqrt approximates sqrt(n) for n >= 0.
func fastSqrt(n float64) float64 {
	if n == 0 {
		return 0
	}
	f := float32(n)
	return float64(f * fastInvSqrt(f))
}
