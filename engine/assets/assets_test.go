package assets

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/scene"
	"github.com/spaghettifunk/anima-engine/engine/systems"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

func newFS() *vfs.FS {
	fs := vfs.New(containers.NewRegistry())
	systems.NewResourceSystem(fs, systems.ResourceSystemConfig{})
	return fs
}

func checker(alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: alpha})
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDecodeTexturePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, checker(128)))

	tex, err := DecodeTexture("checker", &buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	assert.Equal(t, uint8(4), tex.ChannelCount)
	assert.Len(t, tex.Pixels, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[:4])
	assert.True(t, tex.HasTransparency())
}

func TestDecodeTextureBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, checker(255)))

	tex, err := DecodeTexture("checker", &buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255, 0, 255}, tex.Pixels[4:8])
	assert.False(t, tex.HasTransparency())
}

func TestDecodeTextureUnknownFormat(t *testing.T) {
	_, err := DecodeTexture("noise", strings.NewReader("definitely not an image"))
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestParseMaterialConfig(t *testing.T) {
	src := `
# stone material
name = stone
shader = Shaders/pbr.shader
diffuse_colour = 0.5 0.5 0.5 1.0
shininess = 8
diffuse_map_name = Textures/stone.tex
bogus = ignored
`
	cfg, err := ParseMaterialConfig(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "stone", cfg.Name)
	assert.Equal(t, math.Vec4{X: 0.5, Y: 0.5, Z: 0.5, W: 1}, cfg.DiffuseColour)
	assert.Equal(t, float32(8), cfg.Shininess)

	fs := newFS()
	shaders := fs.CreateFolder("Shaders", containers.NullHandle)
	textures := fs.CreateFolder("Textures", containers.NullHandle)
	shader := vfs.CreateFile(fs, "pbr", resources.Shader{Name: "pbr"}, shaders, nil)
	tex := vfs.CreateFile(fs, "stone", resources.Texture{Name: "stone"}, textures, nil)

	m := NewImporter(fs).Material(cfg)
	assert.Equal(t, fs.Data(shader), m.Shader)
	assert.Equal(t, fs.Data(tex), m.DiffuseMap.Texture)
	assert.True(t, m.NormalMap.Texture.IsNull())

	_, err = ParseMaterialConfig(strings.NewReader("name = x\nshader = y\ndiffuse_colour = 2 0 0 1\n"))
	assert.Error(t, err)
	_, err = ParseMaterialConfig(strings.NewReader("shader = y\n"))
	assert.Error(t, err)
}

func heroDescription() *ModelDescription {
	skel := resources.Skeleton{Name: "hero", Bones: []resources.Bone{
		{Name: "hips", Parent: -1, Bind: math.NewTransform()},
		{Name: "spine", Parent: 0, Bind: math.NewTransformFromPRS(math.NewVec3(0, 1, 0), math.NewQuatIdentity(), math.NewVec3One())},
	}}
	skel.ComputeBindInverses()

	vertices := []math.Vertex3D{{Position: math.NewVec3(-1, 0, 0)}, {Position: math.NewVec3(1, 0, 0)}, {Position: math.NewVec3(0, 2, 0)}}
	mesh := resources.NewMesh("body", vertices, []uint32{0, 1, 2})
	mesh.Skin = make([]resources.VertexSkin, 3)

	bob := animation.Sampler{Times: []float32{0, 1}, Values: []float32{0, 0, 0, 0, 1, 0}}
	idle := animation.NewClip("idle", []animation.Sampler{bob}, []animation.Channel{
		{Sampler: 0, Target: 0, Kind: animation.TargetNode, Path: animation.PathTranslation},
	})

	return &ModelDescription{
		Name:     "hero",
		Textures: []resources.Texture{{Name: "skin", Width: 1, Height: 1, ChannelCount: 4, Pixels: []byte{1, 2, 3, 4}}},
		Materials: []MaterialDescription{{
			Material:        resources.NewMaterial("skin", containers.NullHandle),
			DiffuseTexture:  0,
			SpecularTexture: NoIndex,
			NormalTexture:   NoIndex,
		}},
		Meshes: []MeshDescription{{Mesh: mesh, SubmeshMaterials: []int{0}}},
		Nodes: []NodeDescription{
			{Name: "body", Parent: NoIndex, Local: math.NewTransform(), Mesh: 0},
			{Name: "hat", Parent: 0, Local: math.NewTransform(), Mesh: NoIndex},
		},
		Skeleton:   &skel,
		Animations: &animation.Library{Name: "hero", Clips: []animation.Clip{idle}},
	}
}

func TestAddModel(t *testing.T) {
	fs := newFS()
	im := NewImporter(fs)
	im.DefaultShader = fs.Data(vfs.CreateFile(fs, "pbr", resources.Shader{Name: "pbr"}, containers.NullHandle, nil))
	models := fs.CreateFolder("Models", containers.NullHandle)

	res, err := im.AddModel(heroDescription(), models)
	require.NoError(t, err)
	assert.Equal(t, "Models/hero", fs.Path(res.Folder))
	assert.Equal(t, "Models/hero/skin.tex", fs.Path(res.Textures[0]))
	assert.Equal(t, "Models/hero/skin.mat", fs.Path(res.Materials[0]))
	assert.Equal(t, "Models/hero/body.mesh", fs.Path(res.Meshes[0]))
	assert.Equal(t, "Models/hero/hero.skel", fs.Path(res.Skeleton))
	assert.Equal(t, "Models/hero/hero.anim", fs.Path(res.Library))
	assert.Equal(t, "Models/hero/hero.scene", fs.Path(res.Scene))

	mat := vfs.DataOf[resources.Material](fs, res.Materials[0])
	assert.Equal(t, fs.Data(res.Textures[0]), mat.DiffuseMap.Texture)
	assert.Equal(t, im.DefaultShader, mat.Shader)
	mesh := vfs.DataOf[resources.Mesh](fs, res.Meshes[0])
	assert.Equal(t, fs.Data(res.Materials[0]), mesh.Submeshes[0].Material)

	prefab := *vfs.DataOf[*scene.Scene](fs, res.Scene)
	kids := prefab.Children(prefab.Root())
	require.Len(t, kids, 2)
	rig, body := kids[0], kids[1]
	assert.NotNil(t, prefab.Skeleton(rig))
	mr := prefab.MeshRender(body)
	require.NotNil(t, mr)
	assert.Equal(t, rig, mr.Skeleton)
	assert.Len(t, prefab.Children(body), 1)

	anim := prefab.Animation(prefab.Root())
	require.NotNil(t, anim)
	assert.Equal(t, "idle", anim.Controller.Current())
	assert.Equal(t, rig, anim.Skeleton)

	// the prefab instances into a level
	level := scene.New("level", fs.Registry())
	inst := level.AddScene(prefab, containers.NullHandle)
	level.Update(&scene.UpdateContext{DeltaTime: 0.5})
	body2 := level.Children(inst)[1]
	got := math.NewVec3Zero().Transform(level.World(body2))
	assert.InDelta(t, 0.5, got.Y, 1e-4)
}

func TestAddModelRejectsBadIndices(t *testing.T) {
	fs := newFS()
	desc := heroDescription()
	desc.Meshes[0].SubmeshMaterials = []int{3}
	_, err := NewImporter(fs).AddModel(desc, containers.NullHandle)
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Empty(t, fs.Children(fs.Root()))

	desc = heroDescription()
	desc.Nodes[0].Parent = 1
	_, err = NewImporter(fs).AddModel(desc, containers.NullHandle)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestAddModelSanitizesFileNames(t *testing.T) {
	fs := newFS()
	desc := heroDescription()
	desc.Textures[0].Name = ""
	desc.Meshes[0].Mesh.Name = "body/lod0"
	res, err := NewImporter(fs).AddModel(desc, containers.NullHandle)
	require.NoError(t, err)
	assert.Equal(t, "hero/hero_texture_0.tex", fs.Path(res.Textures[0]))
	assert.Equal(t, "hero/body_lod0.mesh", fs.Path(res.Meshes[0]))
	assert.Equal(t, res.Meshes[0], fs.Find("hero/body_lod0.mesh"))

	desc = heroDescription()
	desc.Name = "a/b"
	_, err = NewImporter(fs).AddModel(desc, containers.NullHandle)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestAddFont(t *testing.T) {
	dir := t.TempDir()
	fnt := `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=2 scaleH=2 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=2
char id=66 x=1 y=0 width=1 height=2 xoffset=0 yoffset=2 xadvance=3 page=0 chnl=15
char id=65 x=0 y=0 width=1 height=2 xoffset=0 yoffset=2 xadvance=2 page=0 chnl=15
kernings count=1
kerning first=65 second=66 amount=-1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.fnt"), []byte(fnt), 0o644))
	writePNG(t, filepath.Join(dir, "test_0.png"), checker(255))

	fs := newFS()
	file, err := NewImporter(fs).AddFont(filepath.Join(dir, "test.fnt"), containers.NullHandle)
	require.NoError(t, err)
	assert.Equal(t, "test.font", fs.Path(file))

	font := vfs.DataOf[resources.Font](fs, file)
	require.NotNil(t, font)
	assert.Equal(t, "Test", font.Face)
	assert.Equal(t, int32(18), font.LineHeight)
	require.Len(t, font.Glyphs, 2)
	assert.Equal(t, 'A', font.Glyphs[0].Codepoint)
	assert.Equal(t, int16(3), font.Glyph('B').XAdvance)
	assert.Equal(t, int16(-1), font.Kerning('A', 'B'))
	require.Len(t, font.Pages, 1)
	assert.True(t, containers.Is[resources.Texture](fs.Registry(), font.Pages[0]))
}

func TestWatcherReloadsChangedScripts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spin.lua")
	require.NoError(t, os.WriteFile(path, []byte("function update(v, scn, node, dt) end"), 0o644))

	fs := newFS()
	reloads := 0
	bus := core.NewEventBus()
	fs.SetEventBus(bus)
	bus.Register(core.EventCodeFileReloaded, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		reloads++
		return true
	})

	im := NewImporter(fs)
	file, err := im.AddScript(path, containers.NullHandle)
	require.NoError(t, err)

	w, err := NewWatcher(fs, im, 16)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	updated := "function update(v, scn, node, dt) return v end"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		w.Poll()
		return vfs.DataOf[resources.Script](fs, file).Code == updated
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, reloads, 1)
	assert.GreaterOrEqual(t, vfs.DataOf[resources.Script](fs, file).Generation, uint32(1))
}

func TestWatcherPollRefreshesTextures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "albedo.png")
	writePNG(t, path, checker(255))

	fs := newFS()
	im := NewImporter(fs)
	file, err := im.AddTexture(path, containers.NullHandle)
	require.NoError(t, err)
	assert.Equal(t, "albedo.tex", fs.Path(file))

	w, err := NewWatcher(fs, im, 1)
	require.NoError(t, err)
	defer w.Close()

	writePNG(t, path, image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	w.enqueue(path)
	w.enqueue(path)
	w.enqueue(filepath.Join(dir, "unbound.png"))
	assert.Equal(t, 1, w.Poll())

	tex := vfs.DataOf[resources.Texture](fs, file)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Len(t, tex.Pixels, 64)
	assert.Equal(t, 0, w.Poll())
}

func TestWatcherCloseWhileDirectoriesAppear(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(newFS(), nil, 8)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	// the event goroutine calls Watch for every new directory
	for i := 0; i < 5; i++ {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"+string(rune('a'+i))), 0o755))
	}
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.Error(t, w.Watch(dir))
}
