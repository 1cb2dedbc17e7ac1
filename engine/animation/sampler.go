package animation

import (
	"sort"

	"github.com/spaghettifunk/anima-engine/engine/math"
)

type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	// InterpolationCubicSpline stores an (in-tangent, value, out-tangent)
	// triplet per key.
	InterpolationCubicSpline
)

// Sampler is a keyframe track. Values holds Components() floats per key,
// three times that for cubic splines.
type Sampler struct {
	Times  []float32
	Values []float32
	Interp Interpolation
}

func (s *Sampler) Duration() float32 {
	if len(s.Times) == 0 {
		return 0
	}
	return s.Times[len(s.Times)-1]
}

// Components is the number of floats per key value.
func (s *Sampler) Components() int {
	if len(s.Times) == 0 {
		return 0
	}
	per := len(s.Values) / len(s.Times)
	if s.Interp == InterpolationCubicSpline {
		per /= 3
	}
	return per
}

func (s *Sampler) value(key, comps int) []float32 {
	if s.Interp == InterpolationCubicSpline {
		base := (key*3 + 1) * comps
		return s.Values[base : base+comps]
	}
	return s.Values[key*comps : key*comps+comps]
}

func (s *Sampler) tangent(key, comps int, out bool) []float32 {
	base := key * 3 * comps
	if out {
		base += 2 * comps
	}
	return s.Values[base : base+comps]
}

// Sample evaluates the track at time t into out, which must hold comps
// floats. Times outside the keyed range clamp to the first or last key.
// Rotation tracks are slerped (linear) and normalized.
func (s *Sampler) Sample(t float32, comps int, isRotation bool, out []float32) {
	n := len(s.Times)
	if n == 0 || comps == 0 {
		return
	}
	if t <= s.Times[0] || n == 1 {
		copy(out, s.value(0, comps))
		return
	}
	if t >= s.Times[n-1] {
		copy(out, s.value(n-1, comps))
		return
	}

	next := sort.Search(n, func(i int) bool { return s.Times[i] > t })
	prev := next - 1
	span := s.Times[next] - s.Times[prev]
	u := (t - s.Times[prev]) / span

	switch s.Interp {
	case InterpolationStep:
		copy(out, s.value(prev, comps))
		return
	case InterpolationCubicSpline:
		u2 := u * u
		u3 := u2 * u
		h00 := 2*u3 - 3*u2 + 1
		h10 := u3 - 2*u2 + u
		h01 := -2*u3 + 3*u2
		h11 := u3 - u2
		p0, p1 := s.value(prev, comps), s.value(next, comps)
		m0, m1 := s.tangent(prev, comps, true), s.tangent(next, comps, false)
		for i := 0; i < comps; i++ {
			out[i] = h00*p0[i] + h10*span*m0[i] + h01*p1[i] + h11*span*m1[i]
		}
	default:
		a, b := s.value(prev, comps), s.value(next, comps)
		if isRotation && comps == 4 {
			qa := math.Quaternion{X: a[0], Y: a[1], Z: a[2], W: a[3]}
			qb := math.Quaternion{X: b[0], Y: b[1], Z: b[2], W: b[3]}
			q := qa.Slerp(qb, u)
			out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
			return
		}
		for i := 0; i < comps; i++ {
			out[i] = math.Lerp(a[i], b[i], u)
		}
	}
	if isRotation && comps == 4 {
		q := math.Quaternion{X: out[0], Y: out[1], Z: out[2], W: out[3]}.Normalize()
		out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
	}
}
