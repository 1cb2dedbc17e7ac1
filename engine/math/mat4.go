package math

// Mat4 is a row-major 4x4 matrix used with row vectors: a point p is
// transformed as p * M and the translation lives in Data[12..14]. Composing
// "A then B" is A.Mul(B).
type Mat4 struct {
	Data [16]float32
}

func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

// Mul returns mt * other.
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

func (mt Mat4) Transposed() Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Data[col*4+row] = mt.Data[row*4+col]
		}
	}
	return out
}

// Inverse uses Gauss-Jordan elimination with partial pivoting in double
// precision. A singular matrix yields the identity.
func (mt Mat4) Inverse() Mat4 {
	var a [4][8]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a[r][c] = float64(mt.Data[r*4+c])
		}
		a[r][4+r] = 1
	}
	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if abs64(a[r][col]) > abs64(a[pivot][col]) {
				pivot = r
			}
		}
		if abs64(a[pivot][col]) < 1e-12 {
			return NewMat4Identity()
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv := 1.0 / a[col][col]
		for c := 0; c < 8; c++ {
			a[col][c] *= inv
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for c := 0; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	out := Mat4{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out.Data[r*4+c] = float32(a[r][4+c])
		}
	}
	return out
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := range mt.Data {
		if Abs(mt.Data[i]-other.Data[i]) > tolerance {
			return false
		}
	}
	return true
}

func (mt Mat4) Translation() Vec3 {
	return Vec3{mt.Data[12], mt.Data[13], mt.Data[14]}
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

// NewMat4TRS builds scale, then rotation, then translation.
func NewMat4TRS(position Vec3, rotation Quaternion, scale Vec3) Mat4 {
	r := rotation.ToMat4()
	out := Mat4{}
	for row := 0; row < 3; row++ {
		s := scale.X
		switch row {
		case 1:
			s = scale.Y
		case 2:
			s = scale.Z
		}
		for col := 0; col < 3; col++ {
			out.Data[row*4+col] = r.Data[row*4+col] * s
		}
	}
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	out.Data[15] = 1
	return out
}

func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := Tan(fovRadians * 0.5)
	out := Mat4{}
	out.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	out.Data[5] = 1.0 / halfTanFov
	out.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	out.Data[11] = -1.0
	out.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return out
}

// NewMat4LookAt returns the view matrix of an eye at position looking at target.
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := target.Sub(position).Normalized()
	xAxis := zAxis.Cross(up).Normalized()
	yAxis := xAxis.Cross(zAxis)

	out := Mat4{}
	out.Data[0] = xAxis.X
	out.Data[1] = yAxis.X
	out.Data[2] = -zAxis.X
	out.Data[4] = xAxis.Y
	out.Data[5] = yAxis.Y
	out.Data[6] = -zAxis.Y
	out.Data[8] = xAxis.Z
	out.Data[9] = yAxis.Z
	out.Data[10] = -zAxis.Z
	out.Data[12] = -xAxis.Dot(position)
	out.Data[13] = -yAxis.Dot(position)
	out.Data[14] = zAxis.Dot(position)
	out.Data[15] = 1.0
	return out
}

func NewMat4EulerZ(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c := Cos(angleRadians)
	s := Sin(angleRadians)
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}
