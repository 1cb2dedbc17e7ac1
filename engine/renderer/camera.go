package renderer

import (
	"github.com/spaghettifunk/anima-engine/engine/math"
)

/** @brief Pitch is clamped to +-89 degrees to avoid gimbal lock. */
const pitchLimit = float32(1.55334306)

/**
 * @brief A perspective camera. It produces the view-projection matrix and
 * the frustum the scene culls against. Position and rotation setters keep
 * the cached view in sync, prefer them over writing the fields.
 */
type Camera struct {
	Position math.Vec3
	/** @brief Euler angles in radians: pitch around X, yaw around Y. Roll is unused. */
	EulerRotation math.Vec3

	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	dirty bool
	view  math.Mat4
}

func NewCamera(aspect float32) *Camera {
	c := &Camera{
		FOV:    math.DegToRad(45),
		Aspect: aspect,
		Near:   0.1,
		Far:    1000,
	}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.Position = math.NewVec3Zero()
	c.EulerRotation = math.NewVec3Zero()
	c.view = math.NewMat4Identity()
	c.dirty = false
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.dirty = true
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.dirty = true
}

func (c *Camera) rotation() math.Mat4 {
	pitch := math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), c.EulerRotation.X, true).ToMat4()
	yaw := math.NewQuatFromAxisAngle(math.NewVec3Up(), c.EulerRotation.Y, true).ToMat4()
	return pitch.Mul(yaw)
}

func (c *Camera) View() math.Mat4 {
	if c.dirty {
		world := c.rotation().Mul(math.NewMat4Translation(c.Position))
		c.view = world.Inverse()
		c.dirty = false
	}
	return c.view
}

func (c *Camera) Projection() math.Mat4 {
	return math.NewMat4Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

func (c *Camera) ViewProjection() math.Mat4 {
	return c.View().Mul(c.Projection())
}

// Frustum is the culling volume of the current view.
func (c *Camera) Frustum() math.Frustum {
	return math.NewFrustumFromMatrix(c.ViewProjection())
}

func (c *Camera) Forward() math.Vec3 {
	return math.NewVec3(0, 0, -1).Transform(c.rotation()).Normalized()
}

func (c *Camera) Right() math.Vec3 {
	return math.NewVec3(1, 0, 0).Transform(c.rotation()).Normalized()
}

func (c *Camera) MoveForward(amount float32) {
	c.SetPosition(c.Position.Add(c.Forward().MulScalar(amount)))
}

func (c *Camera) MoveRight(amount float32) {
	c.SetPosition(c.Position.Add(c.Right().MulScalar(amount)))
}

func (c *Camera) MoveUp(amount float32) {
	c.SetPosition(c.Position.Add(math.NewVec3Up().MulScalar(amount)))
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.dirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X+amount, -pitchLimit, pitchLimit)
	c.dirty = true
}
