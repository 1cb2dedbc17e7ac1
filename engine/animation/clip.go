package animation

import "github.com/spaghettifunk/anima-engine/engine/math"

// Channel binds a sampler to one path of a target.
type Channel struct {
	Sampler int
	Target  int
	Kind    TargetKind
	Path    Path
}

type Clip struct {
	Name     string
	Duration float32
	Samplers []Sampler
	Channels []Channel
}

// NewClip sets Duration to the last key time across all samplers.
func NewClip(name string, samplers []Sampler, channels []Channel) Clip {
	c := Clip{Name: name, Samplers: samplers, Channels: channels}
	for i := range samplers {
		c.Duration = max(c.Duration, samplers[i].Duration())
	}
	return c
}

// Sample evaluates every channel at time t and writes the result into pose.
func (c *Clip) Sample(t float32, pose *Pose) {
	var buf [4]float32
	for _, ch := range c.Channels {
		if ch.Sampler < 0 || ch.Sampler >= len(c.Samplers) {
			continue
		}
		s := &c.Samplers[ch.Sampler]
		tp := pose.target(Key{Kind: ch.Kind, Target: ch.Target})
		tp.Mask |= ch.Path.mask()

		switch ch.Path {
		case PathTranslation:
			s.Sample(t, 3, false, buf[:3])
			tp.Translation = math.NewVec3(buf[0], buf[1], buf[2])
		case PathScale:
			s.Sample(t, 3, false, buf[:3])
			tp.Scale = math.NewVec3(buf[0], buf[1], buf[2])
		case PathRotation:
			s.Sample(t, 4, true, buf[:4])
			tp.Rotation = math.Quaternion{X: buf[0], Y: buf[1], Z: buf[2], W: buf[3]}
		case PathWeights:
			comps := s.Components()
			if cap(tp.Weights) < comps {
				tp.Weights = make([]float32, comps)
			}
			tp.Weights = tp.Weights[:comps]
			s.Sample(t, comps, false, tp.Weights)
		}
	}
}

// Library is a named set of clips stored as one registry value.
type Library struct {
	Name  string
	Clips []Clip
}

func (l *Library) Find(name string) *Clip {
	if l == nil {
		return nil
	}
	for i := range l.Clips {
		if l.Clips[i].Name == name {
			return &l.Clips[i]
		}
	}
	return nil
}
