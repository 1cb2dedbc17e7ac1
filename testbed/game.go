package testbed

import (
	"github.com/spaghettifunk/anima-engine/engine"
	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/assets"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/scene"
	"github.com/spaghettifunk/anima-engine/engine/systems"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

const spinScript = `
function update(vars, scene, node, dt)
	rotate(0, 1, 0, vars.speed * dt)
	vars.frames = (vars.frames or 0) + 1
	return vars
end
`

// TestGame imports a generated skinned model, instances it twice, animates
// it for a while and then removes the assets through the deferred path.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	project *engine.Project
	level   *scene.Scene

	model     assets.ImportResult
	instances []containers.Handle

	frame    uint64
	removeAt uint64
	maxFrame uint64
	removed  bool
	flushed  uint32
	drawn    uint32
}

func NewTestGame(config *core.EngineConfig) *TestGame {
	if config == nil {
		config = core.DefaultConfig()
		config.Application.Name = "Anima Testbed"
	}
	tg := &TestGame{
		Game: &engine.Game{
			Config: config,
			State: &gameState{
				removeAt: 120,
				maxFrame: 240,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(p *engine.Project) error {
	core.LogInfo("initializing testbed...")
	st := g.state()
	st.project = p
	fs := p.FS()

	models := fs.CreateFolder("Models", containers.NullHandle)
	res, err := p.Importer.AddModel(GenerateModel("pillar"), models)
	if err != nil {
		return err
	}
	st.model = res

	scripts := fs.CreateFolder("Scripts", containers.NullHandle)
	spin := vfs.CreateFile(fs, "spin", resources.Script{Name: "spin", Code: spinScript}, scripts, nil)

	level, _ := p.NewScene("level")
	st.level = level
	prefab := *vfs.DataOf[*scene.Scene](fs, res.Scene)
	for i := 0; i < 2; i++ {
		inst := level.AddScene(prefab, containers.NullHandle)
		level.AddTransform(inst, math.NewTransformFromPRS(math.NewVec3(float32(i*4-2), 0, 0), math.NewQuatIdentity(), math.NewVec3One()))
		st.instances = append(st.instances, inst)
	}
	level.AddScript(st.instances[0], scene.Script{
		Name:   "spin",
		Source: fs.Data(spin),
		Code:   spinScript,
		Vars:   map[string]any{"speed": 1.5},
	})

	p.Camera.SetPosition(math.NewVec3(0, 2, 10))

	p.Events().Register(core.EventCodeDeferredFlushed, g, g.onFlushed)
	return nil
}

func (g *TestGame) onFlushed(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	st := g.state()
	st.flushed += data.U32[0]
	core.LogInfo("deferred flush erased %d files", data.U32[0])
	return false
}

func (g *TestGame) Update(deltaTime float64) error {
	st := g.state()
	st.frame++

	if st.frame == st.removeAt && !st.removed {
		g.removeModel()
	}
	if st.removed && st.flushed > 0 {
		// the queued files are gone, the folder is trivial to remove now
		fs := st.project.FS()
		if fs.Valid(st.model.Folder) && len(fs.Children(st.model.Folder)) == 0 {
			st.project.Systems.Remover.Remove(st.model.Folder, nil)
		}
	}
	if st.frame >= st.maxFrame {
		st.project.Quit()
	}
	return nil
}

func (g *TestGame) removeModel() {
	st := g.state()
	for _, inst := range st.instances {
		st.level.RemoveNode(inst)
	}
	st.instances = nil

	fs := st.project.FS()
	remover := st.project.Systems.Remover
	for _, file := range fs.Children(st.model.Folder) {
		remover.Remove(file, nil)
	}
	st.removed = true
	core.LogInfo("model removal requested, %d files left until the next flush", len(fs.Children(st.model.Folder)))
}

func (g *TestGame) Render(stats *systems.FrameStats, deltaTime float64) error {
	st := g.state()
	st.drawn = stats.Batch.Instances
	if stats.Frame%60 == 0 {
		core.LogInfo("frame %d: %d instances in %d groups, %d culled, %d skins",
			stats.Frame, stats.Batch.Instances, stats.Batch.Groups, stats.Scene.Culled, stats.Batch.Skins)
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	st := g.state()
	core.LogInfo("testbed ran %d frames, deferred flushes erased %d files", st.frame, st.flushed)
	return nil
}

// Flushed is the number of files erased by deferred flushes so far.
func (g *TestGame) Flushed() uint32 {
	return g.state().flushed
}

// GenerateModel describes a textured, skinned two-bone pillar with a
// looping sway clip.
func GenerateModel(name string) *assets.ModelDescription {
	skel := resources.Skeleton{Name: name, Bones: []resources.Bone{
		{Name: "base", Parent: -1, Bind: math.NewTransform()},
		{Name: "top", Parent: 0, Bind: math.NewTransformFromPRS(math.NewVec3(0, 1, 0), math.NewQuatIdentity(), math.NewVec3One())},
	}}
	skel.ComputeBindInverses()

	var vertices []math.Vertex3D
	var skin []resources.VertexSkin
	for _, y := range []float32{0, 1, 2} {
		for _, x := range []float32{-0.5, 0.5} {
			vertices = append(vertices, math.Vertex3D{
				Position: math.NewVec3(x, y, 0),
				Texcoord: math.NewVec2(x+0.5, y/2),
				Colour:   math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
			})
			bone := uint16(0)
			if y > 1 {
				bone = 1
			}
			skin = append(skin, resources.VertexSkin{Joints: [4]uint16{bone}, Weights: [4]float32{1}})
		}
	}
	indices := []uint32{0, 1, 2, 2, 1, 3, 2, 3, 4, 4, 3, 5}
	math.GeometryGenerateNormals(vertices, indices)
	mesh := resources.NewMesh(name, vertices, indices)
	mesh.Skin = skin

	sway := math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), 0.4, true)
	rotations := animation.Sampler{
		Times:  []float32{0, 1, 2},
		Values: []float32{0, 0, 0, 1, sway.X, sway.Y, sway.Z, sway.W, 0, 0, 0, 1},
	}
	clip := animation.NewClip("sway", []animation.Sampler{rotations}, []animation.Channel{
		{Sampler: 0, Target: 1, Kind: animation.TargetBone, Path: animation.PathRotation},
	})

	checker := make([]byte, 0, 4*4*4)
	for i := 0; i < 16; i++ {
		c := byte(40)
		if (i/4+i%4)%2 == 0 {
			c = 220
		}
		checker = append(checker, c, c, c, 255)
	}

	return &assets.ModelDescription{
		Name: name,
		Textures: []resources.Texture{{
			Name: name + "_albedo", Width: 4, Height: 4, ChannelCount: 4, Pixels: checker,
		}},
		Materials: []assets.MaterialDescription{{
			Material:        resources.NewMaterial(name, containers.NullHandle),
			DiffuseTexture:  0,
			SpecularTexture: assets.NoIndex,
			NormalTexture:   assets.NoIndex,
		}},
		Meshes: []assets.MeshDescription{{Mesh: mesh, SubmeshMaterials: []int{0}}},
		Nodes: []assets.NodeDescription{
			{Name: "body", Parent: assets.NoIndex, Local: math.NewTransform(), Mesh: 0},
		},
		Skeleton:   &skel,
		Animations: &animation.Library{Name: name, Clips: []animation.Clip{clip}},
	}
}
