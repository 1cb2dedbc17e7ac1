package scripting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/scene"
)

const mover = `
function update(vars, scn, node, dt)
	local x, y, z = get_position()
	set_position(x + vars.speed * dt, y, z)
	vars.frames = (vars.frames or 0) + 1
	vars.name = get_name()
	return vars
end
`

func newScene() (*scene.Scene, *VM) {
	s := scene.New("level", nil)
	vm := NewVM()
	return s, vm
}

func TestRunMovesNodeAndKeepsVars(t *testing.T) {
	s, vm := newScene()
	defer vm.Close()
	n := s.AddNode("hero", s.Root())
	s.AddTransform(n, math.NewTransform())
	s.AddScript(n, scene.Script{Name: "mover", Code: mover, Vars: map[string]any{"speed": 2.0}})

	script := s.Script(n)
	require.NoError(t, vm.Run(s, n, script, 0.5))
	require.NoError(t, vm.Run(s, n, script, 0.5))

	assert.InDelta(t, 2, s.Transform(n).Local.Position.X, 1e-6)
	assert.Equal(t, 2.0, script.Vars["frames"])
	assert.Equal(t, "hero", script.Vars["name"])
	assert.Len(t, vm.chunks, 1)
}

func TestRunThroughSceneUpdate(t *testing.T) {
	s, vm := newScene()
	defer vm.Close()
	n := s.AddNode("spinner", s.Root())
	s.AddTransform(n, math.NewTransform())
	s.AddScript(n, scene.Script{Code: `
function update(vars, scn, node, dt)
	rotate(0, 1, 0, dt)
	translate(0, 0, 1)
	local sx, sy, sz = get_scale()
	set_scale(sx * 2, sy, sz)
end
`})
	stats := s.Update(&scene.UpdateContext{DeltaTime: math.HalfPI, Scripts: vm})
	assert.Equal(t, 1, stats.Scripts)

	tr := s.Transform(n)
	want := math.NewQuatFromAxisAngle(math.NewVec3Up(), math.HalfPI, true)
	assert.True(t, tr.Local.Rotation.Compare(want, 1e-5))
	assert.Equal(t, float32(2), tr.Local.Scale.X)
	assert.Equal(t, float32(1), s.World(n).Translation().Z)
}

func TestUpdateReceivesSceneNodeAndDelta(t *testing.T) {
	s, vm := newScene()
	defer vm.Close()
	n := s.AddNode("watcher", s.Root())
	script := &scene.Script{Code: `
function update(vars, scn, nd, dt)
	vars.dt = dt
	vars.scene = scn.name
	vars.index = nd.index
	vars.version = nd.version
	vars.same = (scn == scene) and (nd == node)
	set_name(get_name() .. "_seen")
	return vars
end
`}
	require.NoError(t, vm.Run(s, n, script, 0.25))

	assert.Equal(t, 0.25, script.Vars["dt"])
	assert.Equal(t, "level", script.Vars["scene"])
	assert.Equal(t, float64(n.Index), script.Vars["index"])
	assert.Equal(t, float64(n.Version), script.Vars["version"])
	assert.Equal(t, true, script.Vars["same"])
	assert.Equal(t, "watcher_seen", s.Node(n).Name)
}

func TestScriptsAreIsolated(t *testing.T) {
	s, vm := newScene()
	defer vm.Close()
	a := s.AddNode("a", s.Root())
	b := s.AddNode("b", s.Root())
	sa := &scene.Script{Code: "function update(v) v.who = 'a' return v end"}
	sb := &scene.Script{Code: "local unused = 1"}

	require.NoError(t, vm.Run(s, a, sa, 0))
	assert.Equal(t, "a", sa.Vars["who"])
	err := vm.Run(s, b, sb, 0)
	assert.True(t, errors.Is(err, core.ErrScriptMissingUpdate))
}

func TestCompileAndRuntimeErrors(t *testing.T) {
	s, vm := newScene()
	defer vm.Close()
	n := s.AddNode("n", s.Root())

	assert.Error(t, vm.Run(s, n, &scene.Script{Code: "function update("}, 0))
	assert.Error(t, vm.Run(s, n, &scene.Script{Code: "function update(v) error('boom') end"}, 0))

	// no transform: getters fall back to defaults, setters do nothing
	script := &scene.Script{Code: "function update(v) set_position(1, 2, 3) local x = get_position() v.x = x return v end"}
	require.NoError(t, vm.Run(s, n, script, 0))
	assert.Equal(t, 0.0, script.Vars["x"])

	vm.Invalidate(script.Code)
	assert.NotContains(t, vm.chunks, script.Code)
}

func TestMarshalling(t *testing.T) {
	vm := NewVM()
	defer vm.Close()
	in := map[string]any{
		"n":    1.5,
		"ok":   true,
		"name": "x",
		"list": []any{1.0, "two"},
		"nest": map[string]any{"a": 3.0},
	}
	assert.Equal(t, in, fromLua(toLua(vm.state, in)))
}
