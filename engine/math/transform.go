package math

// Transform is a decomposed local transform. Mutators mark it dirty, the
// matrix is rebuilt on the next call to Local.
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3

	isDirty bool
	local   Mat4
}

func NewTransform() Transform {
	return NewTransformFromPRS(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func NewTransformFromPRS(position Vec3, rotation Quaternion, scale Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: rotation,
		Scale:    scale,
		isDirty:  true,
	}
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation
	t.isDirty = true
}

// Rotate applies rotation after the current one.
func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = rotation.Mul(t.Rotation).Normalize()
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.isDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.isDirty = true
}

// MarkDirty forces the next Local call to rebuild the matrix. Needed after
// writing the exported fields directly.
func (t *Transform) MarkDirty() {
	t.isDirty = true
}

func (t *Transform) IsDirty() bool {
	return t.isDirty
}

func (t *Transform) Local() Mat4 {
	if t.isDirty {
		t.local = NewMat4TRS(t.Position, t.Rotation, t.Scale)
		t.isDirty = false
	}
	return t.local
}
