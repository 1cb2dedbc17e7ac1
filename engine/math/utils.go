package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Lerp interpolates between a and b, t is not clamped.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// AlignUp rounds size up to the next multiple of alignment. An alignment of
// zero leaves size untouched.
func AlignUp[T constraints.Unsigned](size, alignment T) T {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}
