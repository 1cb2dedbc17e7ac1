package animation

import (
	gomath "math"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

type TransitionType int

const (
	// TransitionSmooth crossfades while both states keep playing.
	TransitionSmooth TransitionType = iota
	// TransitionFrozen holds the exit pose of the source state during the fade.
	TransitionFrozen
	// TransitionSynchronized keeps the target's normalized time locked to the source.
	TransitionSynchronized
)

type State struct {
	Name  string
	Clip  string
	Speed float32
	Loop  bool
}

// Transition moves from From to To. An empty From matches any state. It
// fires when Predicate returns true, or with ExitTime set, when the source
// crosses ExitTimeNormalized.
type Transition struct {
	From               string
	To                 string
	Type               TransitionType
	Duration           float32
	ExitTime           bool
	ExitTimeNormalized float32
	Predicate          func(c *Controller) bool
}

type playback struct {
	state *State
	time  float32
}

// Controller is a state machine over the clips of one Library. Having no
// current state is a valid idle condition.
type Controller struct {
	states      map[string]*State
	transitions []Transition
	params      map[string]float32

	current *playback
	next    *playback
	active  *Transition
	fade    float32

	scratch *Pose
}

func NewController() *Controller {
	return &Controller{
		states: make(map[string]*State),
		params: make(map[string]float32),
	}
}

func (c *Controller) AddState(s State) {
	if s.Speed == 0 {
		s.Speed = 1
	}
	c.states[s.Name] = &s
}

func (c *Controller) State(name string) *State {
	return c.states[name]
}

func (c *Controller) AddTransition(t Transition) bool {
	if _, ok := c.states[t.To]; !ok {
		core.LogWarn("animation transition to unknown state %q", t.To)
		return false
	}
	if _, ok := c.states[t.From]; t.From != "" && !ok {
		core.LogWarn("animation transition from unknown state %q", t.From)
		return false
	}
	c.transitions = append(c.transitions, t)
	return true
}

func (c *Controller) SetParam(name string, value float32) {
	c.params[name] = value
}

func (c *Controller) Param(name string) float32 {
	return c.params[name]
}

// Play jumps to a state without blending.
func (c *Controller) Play(name string) bool {
	s, ok := c.states[name]
	if !ok {
		return false
	}
	c.current = &playback{state: s}
	c.next, c.active, c.fade = nil, nil, 0
	return true
}

func (c *Controller) Stop() {
	c.current, c.next, c.active, c.fade = nil, nil, nil, 0
}

// Current is the name of the playing state, empty when idle.
func (c *Controller) Current() string {
	if c.current == nil {
		return ""
	}
	return c.current.state.Name
}

func (c *Controller) InTransition() bool {
	return c.next != nil
}

// Time is the playback time of the current state in seconds.
func (c *Controller) Time() float32 {
	if c.current == nil {
		return 0
	}
	return c.current.time
}

func duration(lib *Library, s *State) float32 {
	clip := lib.Find(s.Clip)
	if clip == nil {
		return 0
	}
	return clip.Duration
}

func normalized(t, d float32) float32 {
	if d <= 0 {
		return 1
	}
	return t / d
}

func advance(p *playback, dt, d float32) {
	p.time += dt * p.state.Speed
	if d <= 0 {
		p.time = 0
		return
	}
	if p.state.Loop {
		p.time = float32(gomath.Mod(float64(p.time), float64(d)))
		if p.time < 0 {
			p.time += d
		}
		return
	}
	p.time = max(0, min(p.time, d))
}

// Update advances playback by dt seconds and fires at most one transition.
func (c *Controller) Update(dt float32, lib *Library) {
	if c.current == nil {
		return
	}
	curDur := duration(lib, c.current.state)

	if c.next != nil {
		nextDur := duration(lib, c.next.state)
		switch c.active.Type {
		case TransitionSmooth:
			advance(c.current, dt, curDur)
			advance(c.next, dt, nextDur)
		case TransitionFrozen:
			advance(c.next, dt, nextDur)
		case TransitionSynchronized:
			advance(c.current, dt, curDur)
			c.next.time = normalized(c.current.time, curDur) * nextDur
		}
		c.fade += dt
		if c.fade >= c.active.Duration {
			c.current, c.next, c.active, c.fade = c.next, nil, nil, 0
		}
		return
	}

	before := normalized(c.current.time, curDur)
	advance(c.current, dt, curDur)
	after := normalized(c.current.time, curDur)
	wrapped := c.current.state.Loop && after < before

	for i := range c.transitions {
		t := &c.transitions[i]
		if t.From != "" && t.From != c.current.state.Name {
			continue
		}
		if t.To == c.current.state.Name {
			continue
		}
		fire := t.Predicate != nil && t.Predicate(c)
		if !fire && t.ExitTime {
			if wrapped {
				fire = before < t.ExitTimeNormalized || after >= t.ExitTimeNormalized
			} else {
				fire = before < t.ExitTimeNormalized && after >= t.ExitTimeNormalized
			}
		}
		if fire {
			c.begin(t, lib, curDur)
			return
		}
	}
}

func (c *Controller) begin(t *Transition, lib *Library, curDur float32) {
	to := c.states[t.To]
	if t.Duration <= 0 {
		c.current = &playback{state: to}
		return
	}
	c.next = &playback{state: to}
	if t.Type == TransitionSynchronized {
		c.next.time = normalized(c.current.time, curDur) * duration(lib, to)
	}
	c.active = t
	c.fade = 0
}

// Evaluate samples the current state, crossfaded with the target state of a
// running transition, into pose. It reports false when idle.
func (c *Controller) Evaluate(lib *Library, pose *Pose) bool {
	pose.Reset()
	if c.current == nil {
		return false
	}
	if clip := lib.Find(c.current.state.Clip); clip != nil {
		clip.Sample(c.current.time, pose)
	}
	if c.next == nil {
		return true
	}
	if c.scratch == nil {
		c.scratch = NewPose()
	}
	c.scratch.Reset()
	if clip := lib.Find(c.next.state.Clip); clip != nil {
		clip.Sample(c.next.time, c.scratch)
	}
	Blend(pose, pose, c.scratch, c.fade/c.active.Duration)
	return true
}

// Clone copies states, transitions, parameters and the playback position.
func (c *Controller) Clone() *Controller {
	out := NewController()
	for name, s := range c.states {
		cp := *s
		out.states[name] = &cp
	}
	out.transitions = append(out.transitions, c.transitions...)
	for k, v := range c.params {
		out.params[k] = v
	}
	if c.current != nil {
		out.current = &playback{state: out.states[c.current.state.Name], time: c.current.time}
	}
	if c.next != nil {
		out.next = &playback{state: out.states[c.next.state.Name], time: c.next.time}
		for i := range c.transitions {
			if &c.transitions[i] == c.active {
				out.active = &out.transitions[i]
			}
		}
		out.fade = c.fade
	}
	return out
}
