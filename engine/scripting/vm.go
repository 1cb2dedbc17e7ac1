package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/scene"
)

// VM runs scene scripts on a single gopher-lua state. Every distinct
// source gets its own environment table falling back to the globals, so
// scripts do not see each other's functions. Control thread only.
type VM struct {
	state  *lua.LState
	chunks map[string]*lua.LTable

	// binding of the running script
	scene *scene.Scene
	node  containers.Handle
}

func NewVM() *VM {
	vm := &VM{
		state:  lua.NewState(lua.Options{SkipOpenLibs: false}),
		chunks: make(map[string]*lua.LTable),
	}
	vm.state.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.registerAPI()
	return vm
}

func (vm *VM) registerAPI() {
	api := map[string]lua.LGFunction{
		"get_position": vm.getPosition,
		"set_position": vm.setPosition,
		"translate":    vm.translate,
		"get_rotation": vm.getRotation,
		"set_rotation": vm.setRotation,
		"rotate":       vm.rotate,
		"get_scale":    vm.getScale,
		"set_scale":    vm.setScale,
		"get_name":     vm.getName,
		"set_name":     vm.setName,
	}
	for name, fn := range api {
		vm.state.SetGlobal(name, vm.state.NewFunction(fn))
	}
}

// compile loads code once and returns its environment.
func (vm *VM) compile(code string) (*lua.LTable, error) {
	if env, ok := vm.chunks[code]; ok {
		return env, nil
	}
	fn, err := vm.state.LoadString(code)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	env := vm.state.NewTable()
	meta := vm.state.NewTable()
	meta.RawSetString("__index", vm.state.G.Global)
	vm.state.SetMetatable(env, meta)
	fn.Env = env

	vm.state.Push(fn)
	if err := vm.state.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}
	vm.chunks[code] = env
	return env, nil
}

// Run calls update(vars, scene, node, dt) of the node's script with the
// transform API bound to node. A table returned by update replaces vars.
// The scene and node are also reachable as globals of the script.
func (vm *VM) Run(s *scene.Scene, node containers.Handle, script *scene.Script, dt float32) error {
	env, err := vm.compile(script.Code)
	if err != nil {
		return err
	}
	update := env.RawGetString("update")
	if update.Type() != lua.LTFunction {
		return fmt.Errorf("%w: %s", core.ErrScriptMissingUpdate, script.Name)
	}

	vm.scene, vm.node = s, node
	defer func() { vm.scene, vm.node = nil, containers.NullHandle }()

	nodeTable := vm.state.NewTable()
	nodeTable.RawSetString("index", lua.LNumber(node.Index))
	nodeTable.RawSetString("version", lua.LNumber(node.Version))
	sceneData := vm.sceneUserData(s)
	env.RawSetString("node", nodeTable)
	env.RawSetString("scene", sceneData)

	vars := toLua(vm.state, script.Vars)
	if err := vm.state.CallByParam(lua.P{
		Fn:      update,
		NRet:    1,
		Protect: true,
	}, vars, sceneData, nodeTable, lua.LNumber(dt)); err != nil {
		return fmt.Errorf("script %s: %w", script.Name, err)
	}
	ret := vm.state.Get(-1)
	vm.state.Pop(1)

	out := vars
	if t, ok := ret.(*lua.LTable); ok {
		out = t
	}
	if m, ok := fromLua(out).(map[string]any); ok {
		script.Vars = m
	} else {
		script.Vars = make(map[string]any)
	}
	return nil
}

// sceneUserData wraps s for the script. Indexing it yields the scene name.
func (vm *VM) sceneUserData(s *scene.Scene) *lua.LUserData {
	ud := vm.state.NewUserData()
	ud.Value = s
	fields := vm.state.NewTable()
	fields.RawSetString("name", lua.LString(s.Name))
	meta := vm.state.NewTable()
	meta.RawSetString("__index", fields)
	vm.state.SetMetatable(ud, meta)
	return ud
}

// Invalidate drops the compiled chunk of code, used when a script
// resource is reloaded.
func (vm *VM) Invalidate(code string) {
	delete(vm.chunks, code)
}

func (vm *VM) Reset() {
	clear(vm.chunks)
}

func (vm *VM) Close() {
	vm.state.Close()
}

func (vm *VM) transform() *math.Transform {
	if vm.scene == nil {
		return nil
	}
	t := vm.scene.Transform(vm.node)
	if t == nil {
		return nil
	}
	return &t.Local
}

func checkVec3(L *lua.LState, first int) math.Vec3 {
	return math.NewVec3(
		float32(L.CheckNumber(first)),
		float32(L.CheckNumber(first+1)),
		float32(L.CheckNumber(first+2)),
	)
}

func pushVec3(L *lua.LState, v math.Vec3) int {
	L.Push(lua.LNumber(v.X))
	L.Push(lua.LNumber(v.Y))
	L.Push(lua.LNumber(v.Z))
	return 3
}

func (vm *VM) getPosition(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		return pushVec3(L, t.Position)
	}
	return pushVec3(L, math.NewVec3Zero())
}

func (vm *VM) setPosition(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		t.SetPosition(checkVec3(L, 1))
	}
	return 0
}

func (vm *VM) translate(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		t.Translate(checkVec3(L, 1))
	}
	return 0
}

func (vm *VM) getRotation(L *lua.LState) int {
	q := math.NewQuatIdentity()
	if t := vm.transform(); t != nil {
		q = t.Rotation
	}
	L.Push(lua.LNumber(q.X))
	L.Push(lua.LNumber(q.Y))
	L.Push(lua.LNumber(q.Z))
	L.Push(lua.LNumber(q.W))
	return 4
}

func (vm *VM) setRotation(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		v := checkVec3(L, 1)
		q := math.Quaternion{X: v.X, Y: v.Y, Z: v.Z, W: float32(L.CheckNumber(4))}
		t.SetRotation(q.Normalize())
	}
	return 0
}

// rotate(axis_x, axis_y, axis_z, radians)
func (vm *VM) rotate(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		axis := checkVec3(L, 1)
		t.Rotate(math.NewQuatFromAxisAngle(axis, float32(L.CheckNumber(4)), true))
	}
	return 0
}

func (vm *VM) getScale(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		return pushVec3(L, t.Scale)
	}
	return pushVec3(L, math.NewVec3One())
}

func (vm *VM) setScale(L *lua.LState) int {
	if t := vm.transform(); t != nil {
		t.SetScale(checkVec3(L, 1))
	}
	return 0
}

func (vm *VM) setName(L *lua.LState) int {
	name := L.CheckString(1)
	if vm.scene != nil {
		vm.scene.RenameNode(vm.node, name)
	}
	return 0
}

func (vm *VM) getName(L *lua.LState) int {
	if vm.scene != nil {
		if n := vm.scene.Node(vm.node); n != nil {
			L.Push(lua.LString(n.Name))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}
