package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

func (v Vec2) Compare(other Vec2, tolerance float32) bool {
	return Abs(v.X-other.X) <= tolerance && Abs(v.Y-other.Y) <= tolerance
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{1, 1, 1}
}

func NewVec3Up() Vec3 {
	return Vec3{0, 1, 0}
}

func NewVec3Forward() Vec3 {
	return Vec3{0, 0, -1}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul multiplies component-wise.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float32 {
	return Sqrt(v.LengthSquared())
}

// Normalized returns a unit length copy. The zero vector stays zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return Vec3{Lerp(v.X, other.X, t), Lerp(v.Y, other.Y, t), Lerp(v.Z, other.Z, t)}
}

func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	return Abs(v.X-other.X) <= tolerance &&
		Abs(v.Y-other.Y) <= tolerance &&
		Abs(v.Z-other.Z) <= tolerance
}

func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// Transform treats v as a point (w = 1) and multiplies it as a row vector.
func (v Vec3) Transform(m Mat4) Vec3 {
	return Vec3{
		v.X*m.Data[0] + v.Y*m.Data[4] + v.Z*m.Data[8] + m.Data[12],
		v.X*m.Data[1] + v.Y*m.Data[5] + v.Z*m.Data[9] + m.Data[13],
		v.X*m.Data[2] + v.Y*m.Data[6] + v.Z*m.Data[10] + m.Data[14],
	}
}

func (v Vec3) ToVec4(w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

func (v Vec4) ToVec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

func (v Vec4) Dot(other Vec4) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z + v.W*other.W
}

func (v Vec4) Compare(other Vec4, tolerance float32) bool {
	return v.ToVec3().Compare(other.ToVec3(), tolerance) && Abs(v.W-other.W) <= tolerance
}
