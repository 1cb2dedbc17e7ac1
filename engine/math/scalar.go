package math

import m "math"

const (
	PI          float32 = 3.14159265358979323846
	PI2         float32 = 2.0 * PI
	HalfPI      float32 = 0.5 * PI
	Deg2RadMult float32 = PI / 180.0
	Rad2DegMult float32 = 180.0 / PI
	// Smallest positive number where 1.0 + FloatEpsilon != 0
	FloatEpsilon float32 = 1.192092896e-07
	Infinity     float32 = 1e30
)

func Sin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func Tan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func Acos(x float32) float32 {
	return float32(m.Acos(float64(x)))
}

func Sqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func Abs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

func DegToRad(degrees float32) float32 {
	return degrees * Deg2RadMult
}

func RadToDeg(radians float32) float32 {
	return radians * Rad2DegMult
}

func Float32Bits(f float32) uint32 {
	return m.Float32bits(f)
}

func Float32FromBits(b uint32) float32 {
	return m.Float32frombits(b)
}
