package animation

import "github.com/spaghettifunk/anima-engine/engine/math"

type TargetKind int

const (
	TargetNode TargetKind = iota
	TargetBone
	TargetMorph
)

type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
	PathWeights
)

// PathMask records which paths of a target a pose wrote.
type PathMask uint8

func (p Path) mask() PathMask {
	return 1 << PathMask(p)
}

func (m PathMask) Has(p Path) bool {
	return m&p.mask() != 0
}

type Key struct {
	Kind   TargetKind
	Target int
}

// TargetPose is the animated state of one node, bone or morph set. Only
// the paths in Mask are meaningful.
type TargetPose struct {
	Translation math.Vec3
	Rotation    math.Quaternion
	Scale       math.Vec3
	Weights     []float32
	Mask        PathMask
}

func identityTarget() *TargetPose {
	return &TargetPose{
		Rotation: math.NewQuatIdentity(),
		Scale:    math.NewVec3One(),
	}
}

// Pose accumulates the output of one or more clips.
type Pose struct {
	Targets map[Key]*TargetPose
}

func NewPose() *Pose {
	return &Pose{Targets: make(map[Key]*TargetPose)}
}

func (p *Pose) Reset() {
	clear(p.Targets)
}

func (p *Pose) Get(kind TargetKind, target int) (*TargetPose, bool) {
	tp, ok := p.Targets[Key{Kind: kind, Target: target}]
	return tp, ok
}

func (p *Pose) target(k Key) *TargetPose {
	tp, ok := p.Targets[k]
	if !ok {
		tp = identityTarget()
		p.Targets[k] = tp
	}
	return tp
}

// Blend writes the mix of a and b into dst, w=0 gives a and w=1 gives b.
// Paths written by only one side are taken from that side. dst may alias a.
func Blend(dst, a, b *Pose, w float32) {
	w = math.Clamp(w, 0, 1)
	out := make(map[Key]*TargetPose, len(a.Targets)+len(b.Targets))
	for k, ta := range a.Targets {
		tb, ok := b.Targets[k]
		if !ok {
			out[k] = cloneTarget(ta)
			continue
		}
		out[k] = blendTarget(ta, tb, w)
	}
	for k, tb := range b.Targets {
		if _, ok := a.Targets[k]; !ok {
			out[k] = cloneTarget(tb)
		}
	}
	dst.Targets = out
}

func cloneTarget(t *TargetPose) *TargetPose {
	c := *t
	c.Weights = append([]float32(nil), t.Weights...)
	return &c
}

func blendTarget(a, b *TargetPose, w float32) *TargetPose {
	out := identityTarget()
	out.Mask = a.Mask | b.Mask
	pick := func(p Path) (useA, useB bool) {
		return a.Mask.Has(p), b.Mask.Has(p)
	}

	switch ua, ub := pick(PathTranslation); {
	case ua && ub:
		out.Translation = a.Translation.Lerp(b.Translation, w)
	case ua:
		out.Translation = a.Translation
	case ub:
		out.Translation = b.Translation
	}
	switch ua, ub := pick(PathRotation); {
	case ua && ub:
		out.Rotation = a.Rotation.Slerp(b.Rotation, w)
	case ua:
		out.Rotation = a.Rotation
	case ub:
		out.Rotation = b.Rotation
	}
	switch ua, ub := pick(PathScale); {
	case ua && ub:
		out.Scale = a.Scale.Lerp(b.Scale, w)
	case ua:
		out.Scale = a.Scale
	case ub:
		out.Scale = b.Scale
	}
	switch ua, ub := pick(PathWeights); {
	case ua && ub:
		n := max(len(a.Weights), len(b.Weights))
		out.Weights = make([]float32, n)
		for i := range out.Weights {
			var wa, wb float32
			if i < len(a.Weights) {
				wa = a.Weights[i]
			}
			if i < len(b.Weights) {
				wb = b.Weights[i]
			}
			out.Weights[i] = math.Lerp(wa, wb, w)
		}
	case ua:
		out.Weights = append([]float32(nil), a.Weights...)
	case ub:
		out.Weights = append([]float32(nil), b.Weights...)
	}
	return out
}
