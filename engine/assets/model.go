package assets

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/scene"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

var ErrInvalidModel = errors.New("invalid model description")

// NoIndex marks an absent reference inside a ModelDescription.
const NoIndex = -1

type MaterialDescription struct {
	Material resources.Material
	// Indices into ModelDescription.Textures, NoIndex when unused.
	DiffuseTexture  int
	SpecularTexture int
	NormalTexture   int
}

type MeshDescription struct {
	Mesh resources.Mesh
	// SubmeshMaterials maps every submesh to an index into
	// ModelDescription.Materials. Missing entries keep the submesh's own.
	SubmeshMaterials []int
}

type NodeDescription struct {
	Name string
	// Parent indexes ModelDescription.Nodes, NoIndex for top level nodes.
	// Parents must come before their children.
	Parent int
	Local  math.Transform
	// Mesh indexes ModelDescription.Meshes, NoIndex for none.
	Mesh   int
	Hidden bool
}

// ModelDescription is what a model parser hands over to the importer: flat
// lists cross-referenced by index.
type ModelDescription struct {
	Name      string
	Textures  []resources.Texture
	Materials []MaterialDescription
	Meshes    []MeshDescription
	Nodes     []NodeDescription
	Skeleton  *resources.Skeleton
	// Animation channels of kind TargetNode or TargetMorph use node indices.
	Animations *animation.Library
}

// ImportResult lists the files created for a model. Slices follow the
// order of the description.
type ImportResult struct {
	Folder    containers.Handle
	Textures  []containers.Handle
	Materials []containers.Handle
	Meshes    []containers.Handle
	Skeleton  containers.Handle
	Library   containers.Handle
	Scene     containers.Handle
}

// Importer turns parsed models into filesystem resources and a prefab scene
// that can be instanced with Scene.AddScene.
type Importer struct {
	fs *vfs.FS
	// DefaultShader is assigned to imported materials without a shader.
	DefaultShader containers.Handle
}

func NewImporter(fs *vfs.FS) *Importer {
	return &Importer{fs: fs}
}

// bindSource records the absolute path of a file's origin for hot reload.
func (im *Importer) bindSource(file containers.Handle, path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	im.fs.SetSourcePath(file, path)
}

func checkIndex(what string, i, n int) error {
	if i == NoIndex || (i >= 0 && i < n) {
		return nil
	}
	return fmt.Errorf("%w: %s index %d out of range [0, %d)", ErrInvalidModel, what, i, n)
}

func (desc *ModelDescription) validate() error {
	if !vfs.ValidName(desc.Name) {
		return fmt.Errorf("%w: invalid model name %q", ErrInvalidModel, desc.Name)
	}
	for _, m := range desc.Materials {
		for _, ti := range []int{m.DiffuseTexture, m.SpecularTexture, m.NormalTexture} {
			if err := checkIndex("texture", ti, len(desc.Textures)); err != nil {
				return err
			}
		}
	}
	for _, m := range desc.Meshes {
		for _, mi := range m.SubmeshMaterials {
			if err := checkIndex("material", mi, len(desc.Materials)); err != nil {
				return err
			}
		}
	}
	for i, n := range desc.Nodes {
		if n.Parent != NoIndex && (n.Parent < 0 || n.Parent >= i) {
			return fmt.Errorf("%w: node %q has parent %d", ErrInvalidModel, n.Name, n.Parent)
		}
		if err := checkIndex("mesh", n.Mesh, len(desc.Meshes)); err != nil {
			return err
		}
	}
	if desc.Skeleton != nil {
		if err := desc.Skeleton.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	}
	return nil
}

/**
 * @brief Imports a model under parent, which must be a folder (null means
 * the root). A folder named after the model receives one file per texture,
 * material, mesh, the skeleton, the animation library and the prefab scene.
 */
func (im *Importer) AddModel(desc *ModelDescription, parent containers.Handle) (ImportResult, error) {
	var res ImportResult
	if err := desc.validate(); err != nil {
		return res, err
	}
	res.Folder = im.fs.CreateFolder(desc.Name, parent)
	if res.Folder.IsNull() {
		return res, fmt.Errorf("%w: cannot create folder %q", ErrInvalidModel, desc.Name)
	}

	for i, t := range desc.Textures {
		name := vfs.SafeName(t.Name, fmt.Sprintf("%s_texture_%d", desc.Name, i))
		res.Textures = append(res.Textures, vfs.CreateFile(im.fs, name, t, res.Folder, nil))
	}

	textureData := func(i int) containers.Handle {
		if i == NoIndex {
			return containers.NullHandle
		}
		return im.fs.Data(res.Textures[i])
	}
	for i, md := range desc.Materials {
		m := md.Material
		if m.Shader.IsNull() {
			m.Shader = im.DefaultShader
		}
		m.DiffuseMap.Texture = textureData(md.DiffuseTexture)
		m.SpecularMap.Texture = textureData(md.SpecularTexture)
		m.NormalMap.Texture = textureData(md.NormalTexture)
		name := vfs.SafeName(m.Name, fmt.Sprintf("%s_material_%d", desc.Name, i))
		res.Materials = append(res.Materials, vfs.CreateFile(im.fs, name, m, res.Folder, nil))
	}

	for i, md := range desc.Meshes {
		mesh := md.Mesh
		mesh.Submeshes = append([]resources.Submesh(nil), mesh.Submeshes...)
		for i, mi := range md.SubmeshMaterials {
			if i < len(mesh.Submeshes) && mi != NoIndex {
				mesh.Submeshes[i].Material = im.fs.Data(res.Materials[mi])
			}
		}
		name := vfs.SafeName(mesh.Name, fmt.Sprintf("%s_mesh_%d", desc.Name, i))
		res.Meshes = append(res.Meshes, vfs.CreateFile(im.fs, name, mesh, res.Folder, nil))
	}

	if desc.Skeleton != nil {
		res.Skeleton = vfs.CreateFile(im.fs, vfs.SafeName(desc.Skeleton.Name, desc.Name), *desc.Skeleton, res.Folder, nil)
	}
	if desc.Animations != nil {
		res.Library = vfs.CreateFile(im.fs, vfs.SafeName(desc.Animations.Name, desc.Name), *desc.Animations, res.Folder, nil)
	}

	prefab := im.buildScene(desc, &res)
	res.Scene = vfs.CreateFile(im.fs, desc.Name, prefab, res.Folder, nil)

	core.LogInfo("imported model '%s': %d textures, %d materials, %d meshes, %d nodes",
		desc.Name, len(res.Textures), len(res.Materials), len(res.Meshes), len(desc.Nodes))
	return res, nil
}

func (im *Importer) buildScene(desc *ModelDescription, res *ImportResult) *scene.Scene {
	s := scene.New(desc.Name, im.fs.Registry())

	rig := containers.NullHandle
	if !res.Skeleton.IsNull() {
		rig = s.AddNode("Skeleton", s.Root())
		s.AddSkeleton(rig, im.fs.Data(res.Skeleton))
	}

	nodes := make([]containers.Handle, len(desc.Nodes))
	for i, nd := range desc.Nodes {
		parent := s.Root()
		if nd.Parent != NoIndex {
			parent = nodes[nd.Parent]
		}
		h := s.AddNode(nd.Name, parent)
		nodes[i] = h
		s.AddTransform(h, nd.Local)
		if nd.Mesh == NoIndex {
			continue
		}
		mesh := vfs.DataOf[resources.Mesh](im.fs, res.Meshes[nd.Mesh])
		mr := scene.MeshRender3D{
			Mesh:   im.fs.Data(res.Meshes[nd.Mesh]),
			Hidden: nd.Hidden,
		}
		if mesh.IsSkinned() {
			mr.Skeleton = rig
		}
		if n := mesh.MorphCount(); n > 0 {
			mr.MorphWeights = make([]float32, n)
		}
		s.AddMeshRender(h, mr)
	}

	if !res.Library.IsNull() {
		lib := desc.Animations
		ctrl := animation.NewController()
		for _, clip := range lib.Clips {
			ctrl.AddState(animation.State{Name: clip.Name, Clip: clip.Name, Loop: true})
		}
		if len(lib.Clips) > 0 {
			ctrl.Play(lib.Clips[0].Name)
		}
		s.AddAnimation(s.Root(), scene.Animation3D{
			Library:    im.fs.Data(res.Library),
			Controller: ctrl,
			Targets:    nodes,
			Skeleton:   rig,
		})
	}
	return s
}
