package math

// Extents3D is an axis aligned bounding box.
type Extents3D struct {
	Min Vec3
	Max Vec3
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) IsEmpty() bool {
	return e.Min.X > e.Max.X || e.Min.Y > e.Max.Y || e.Min.Z > e.Max.Z
}

// Extend grows the box to contain p.
func (e Extents3D) Extend(p Vec3) Extents3D {
	if e.IsEmpty() {
		return Extents3D{Min: p, Max: p}
	}
	return Extents3D{
		Min: Vec3{min(e.Min.X, p.X), min(e.Min.Y, p.Y), min(e.Min.Z, p.Z)},
		Max: Vec3{max(e.Max.X, p.X), max(e.Max.Y, p.Y), max(e.Max.Z, p.Z)},
	}
}

// EmptyExtents is the identity of Extend.
func EmptyExtents() Extents3D {
	return Extents3D{
		Min: Vec3{Infinity, Infinity, Infinity},
		Max: Vec3{-Infinity, -Infinity, -Infinity},
	}
}

// Transform returns the box enclosing the eight transformed corners.
func (e Extents3D) Transform(m Mat4) Extents3D {
	out := EmptyExtents()
	for i := 0; i < 8; i++ {
		c := Vec3{e.Min.X, e.Min.Y, e.Min.Z}
		if i&1 != 0 {
			c.X = e.Max.X
		}
		if i&2 != 0 {
			c.Y = e.Max.Y
		}
		if i&4 != 0 {
			c.Z = e.Max.Z
		}
		out = out.Extend(c.Transform(m))
	}
	return out
}

// Plane is n.p + D = 0 with n pointing inside.
type Plane struct {
	Normal Vec3
	D      float32
}

func (p Plane) Distance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

func (p Plane) normalized() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.MulScalar(1 / l), D: p.D / l}
}

type Frustum struct {
	Planes [6]Plane
}

// NewFrustumFromMatrix extracts the planes of a view-projection matrix.
// Depth is assumed to map to [-1, 1] as NewMat4Perspective does.
func NewFrustumFromMatrix(viewProj Mat4) Frustum {
	col := func(j int) Vec4 {
		d := viewProj.Data
		return Vec4{d[j], d[4+j], d[8+j], d[12+j]}
	}
	c0, c1, c2, c3 := col(0), col(1), col(2), col(3)
	mk := func(v Vec4) Plane {
		return Plane{Normal: Vec3{v.X, v.Y, v.Z}, D: v.W}.normalized()
	}
	add := func(a, b Vec4) Vec4 { return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W} }
	sub := func(a, b Vec4) Vec4 { return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W} }

	return Frustum{Planes: [6]Plane{
		mk(add(c3, c0)), // left
		mk(sub(c3, c0)), // right
		mk(add(c3, c1)), // bottom
		mk(sub(c3, c1)), // top
		mk(add(c3, c2)), // near
		mk(sub(c3, c2)), // far
	}}
}

// IntersectsAABB reports whether any part of the box is inside.
func (f Frustum) IntersectsAABB(e Extents3D) bool {
	for _, p := range f.Planes {
		positive := e.Min
		if p.Normal.X >= 0 {
			positive.X = e.Max.X
		}
		if p.Normal.Y >= 0 {
			positive.Y = e.Max.Y
		}
		if p.Normal.Z >= 0 {
			positive.Z = e.Max.Z
		}
		if p.Distance(positive) < 0 {
			return false
		}
	}
	return true
}
