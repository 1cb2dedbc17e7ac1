package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-engine/engine/math"
)

// Bone is one joint of a skeleton. Parent is -1 for roots.
type Bone struct {
	Name   string
	Parent int
	// Bind is the bone's local transform in the bind pose.
	Bind        math.Transform
	BindInverse math.Mat4
}

// Skeleton is shared, immutable bone data. Bones are ordered so that a
// parent always precedes its children.
type Skeleton struct {
	Name  string
	Bones []Bone
}

func (s *Skeleton) BoneCount() int {
	return len(s.Bones)
}

// Find returns the index of the named bone or -1.
func (s *Skeleton) Find(name string) int {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) Validate() error {
	for i, b := range s.Bones {
		if b.Parent >= i || b.Parent < -1 {
			return fmt.Errorf("skeleton %q: bone %d (%s) has parent %d", s.Name, i, b.Name, b.Parent)
		}
	}
	return nil
}

// ComputeBindInverses derives every BindInverse from the bind pose.
func (s *Skeleton) ComputeBindInverses() {
	global := make([]math.Mat4, len(s.Bones))
	for i := range s.Bones {
		b := &s.Bones[i]
		local := b.Bind.Local()
		if b.Parent < 0 {
			global[i] = local
		} else {
			global[i] = local.Mul(global[b.Parent])
		}
		b.BindInverse = global[i].Inverse()
	}
}
