package batch

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

type Config struct {
	MaxFramesInFlight int
	// Initial capacities, in elements per frame.
	InstanceCapacity uint32
	SkinCapacity     uint32
	MorphCapacity    uint32
	MaterialCapacity uint32
}

func DefaultConfig() Config {
	return Config{
		MaxFramesInFlight: 2,
		InstanceCapacity:  1024,
		SkinCapacity:      256,
		MorphCapacity:     256,
		MaterialCapacity:  64,
	}
}

type Stats struct {
	Instances    uint32
	Groups       uint32
	Skins        uint32
	MorphWeights uint32
}

const (
	matrixSize = 64
	// MaterialStride is the size of one record in the material stream.
	MaterialStride = 32
)

// Batcher groups a frame's draw entries by shader, mesh and submesh and
// streams their per-instance data into frame regions of device buffers.
// Calls follow StartFrame, Submit*, Finalize for every frame.
type Batcher struct {
	device  renderer.Device
	cfg     Config
	streams [renderer.StreamCount]*stream

	frame     uint64
	started   bool
	finalized bool

	shaders     []*ShaderGroup
	shaderIndex map[containers.Handle]*ShaderGroup
	skinOffsets map[containers.Handle]uint32
	skin        []math.Mat4
	morph       []float32
	stats       Stats

	material    []byte
	materialGen uint64
	regionGen   []uint64

	scratch []byte
}

func New(device renderer.Device, cfg Config) (*Batcher, error) {
	if cfg.MaxFramesInFlight <= 0 {
		cfg.MaxFramesInFlight = 2
	}
	if cfg.MaxFramesInFlight > renderer.MaxFrameSlots {
		return nil, fmt.Errorf("batch: %d frames in flight, at most %d supported", cfg.MaxFramesInFlight, renderer.MaxFrameSlots)
	}
	b := &Batcher{
		device:      device,
		cfg:         cfg,
		shaderIndex: make(map[containers.Handle]*ShaderGroup),
		skinOffsets: make(map[containers.Handle]uint32),
		regionGen:   make([]uint64, cfg.MaxFramesInFlight),
	}
	regions := uint64(cfg.MaxFramesInFlight)
	specs := [renderer.StreamCount]struct {
		kind  renderer.RenderBufferType
		bytes uint64
	}{
		renderer.StreamInstances: {renderer.RenderBufferTypeStorage, uint64(cfg.InstanceCapacity) * InstanceStride},
		renderer.StreamSkin:      {renderer.RenderBufferTypeStorage, uint64(cfg.SkinCapacity) * matrixSize},
		renderer.StreamMorph:     {renderer.RenderBufferTypeStorage, uint64(cfg.MorphCapacity) * 4},
		renderer.StreamMaterial:  {renderer.RenderBufferTypeUniform, uint64(cfg.MaterialCapacity) * MaterialStride},
	}
	for id, spec := range specs {
		s, err := newStream(device, uint32(id), spec.kind, regions, spec.bytes)
		if err != nil {
			b.Destroy()
			return nil, err
		}
		b.streams[id] = s
	}
	return b, nil
}

// StartFrame drops the previous frame's groups. Device buffers are kept.
func (b *Batcher) StartFrame(frameIndex uint64) {
	b.frame = frameIndex
	b.started = true
	b.finalized = false
	b.shaders = b.shaders[:0]
	clear(b.shaderIndex)
	clear(b.skinOffsets)
	b.skin = b.skin[:0]
	b.morph = b.morph[:0]
	b.stats = Stats{}
	for _, s := range b.streams {
		s.collect(frameIndex)
	}
}

func (b *Batcher) Submit(e DrawEntry) {
	if !b.started || b.finalized {
		core.LogWarn("batch: submit outside of an open frame dropped (mesh %s)", e.Mesh)
		return
	}
	sg, ok := b.shaderIndex[e.Shader]
	if !ok {
		sg = &ShaderGroup{Shader: e.Shader, index: make(map[containers.Handle]*MeshGroup)}
		b.shaderIndex[e.Shader] = sg
		b.shaders = append(b.shaders, sg)
	}
	g := sg.mesh(e.Mesh).submesh(&e)

	inst := instance{world: e.World, materialSlot: e.MaterialSlot, skinOffset: NoSkin}
	if len(e.Skin) > 0 {
		inst.skinOffset = b.skinOffset(e.SkeletonNode, e.Skin)
	}
	if n := len(e.MorphWeights); n > 0 {
		inst.morphOffset = uint32(len(b.morph))
		inst.morphCount = uint32(n)
		b.morph = append(b.morph, e.MorphWeights...)
	}
	g.instances = append(g.instances, inst)
}

func (b *Batcher) skinOffset(node containers.Handle, skin []math.Mat4) uint32 {
	if !node.IsNull() {
		if off, ok := b.skinOffsets[node]; ok {
			return off
		}
	}
	off := uint32(len(b.skin))
	b.skin = append(b.skin, skin...)
	b.stats.Skins++
	if !node.IsNull() {
		b.skinOffsets[node] = off
	}
	return off
}

// SetMaterialData replaces the material stream contents. Each frame region
// is written once by the next Finalize that uses it.
func (b *Batcher) SetMaterialData(data []byte) {
	b.material = append(b.material[:0], data...)
	b.materialGen++
}

// Finalize assigns every submesh group its instance range and writes the
// frame's regions. No Submit may follow for this frame.
func (b *Batcher) Finalize() error {
	if !b.started {
		return core.ErrFrameNotStarted
	}
	if b.finalized {
		return nil
	}
	b.finalized = true

	b.scratch = b.scratch[:0]
	var offset uint32
	for _, sg := range b.shaders {
		for _, mg := range sg.Meshes {
			for _, g := range mg.Submeshes {
				g.InstaOffset = offset
				g.InstaCount = uint32(len(g.instances))
				offset += g.InstaCount
				b.stats.Groups++
				for i := range g.instances {
					b.scratch = appendInstance(b.scratch, &g.instances[i])
				}
			}
		}
	}
	b.stats.Instances = offset
	b.stats.MorphWeights = uint32(len(b.morph))

	if err := b.upload(renderer.StreamInstances, b.scratch); err != nil {
		return err
	}
	b.scratch = b.scratch[:0]
	for _, m := range b.skin {
		for _, f := range m.Data {
			b.scratch = binary.LittleEndian.AppendUint32(b.scratch, math.Float32Bits(f))
		}
	}
	if err := b.upload(renderer.StreamSkin, b.scratch); err != nil {
		return err
	}
	b.scratch = b.scratch[:0]
	for _, w := range b.morph {
		b.scratch = binary.LittleEndian.AppendUint32(b.scratch, math.Float32Bits(w))
	}
	if err := b.upload(renderer.StreamMorph, b.scratch); err != nil {
		return err
	}

	region := b.frame % uint64(b.cfg.MaxFramesInFlight)
	if b.regionGen[region] != b.materialGen {
		if err := b.upload(renderer.StreamMaterial, b.material); err != nil {
			return err
		}
		b.regionGen[region] = b.materialGen
	}
	for _, s := range b.streams {
		if err := s.bind(b.device, b.frame); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batcher) upload(id uint32, data []byte) error {
	s := b.streams[id]
	grown, err := s.ensure(b.device, uint64(len(data)), b.frame)
	if err != nil {
		return err
	}
	if grown && id == renderer.StreamMaterial {
		clear(b.regionGen)
	}
	if err := s.write(b.frame, data); err != nil {
		return fmt.Errorf("batch: stream %d: %w", id, err)
	}
	return nil
}

func appendInstance(dst []byte, inst *instance) []byte {
	for _, f := range inst.world.Data {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(f))
	}
	dst = binary.LittleEndian.AppendUint32(dst, inst.materialSlot)
	dst = binary.LittleEndian.AppendUint32(dst, inst.skinOffset)
	dst = binary.LittleEndian.AppendUint32(dst, inst.morphOffset)
	dst = binary.LittleEndian.AppendUint32(dst, inst.morphCount)
	return dst
}

// Groups are the shader groups of the current frame in submission order.
func (b *Batcher) Groups() []*ShaderGroup {
	return b.shaders
}

// Each visits every submesh group in draw order.
func (b *Batcher) Each(fn func(shader, mesh containers.Handle, g *SubmeshGroup) bool) {
	for _, sg := range b.shaders {
		for _, mg := range sg.Meshes {
			for _, g := range mg.Submeshes {
				if !fn(sg.Shader, mg.Mesh, g) {
					return
				}
			}
		}
	}
}

// Offsets are the dynamic offsets of the current frame's regions, indexed
// by stream.
func (b *Batcher) Offsets() [renderer.StreamCount]uint32 {
	var out [renderer.StreamCount]uint32
	for i, s := range b.streams {
		out[i] = uint32(s.offset(b.frame))
	}
	return out
}

// Record replays the finalized frame into a recorder.
func (b *Batcher) Record(rec renderer.Recorder) {
	offsets := b.Offsets()
	rec.BeginFrame(b.frame)
	for _, sg := range b.shaders {
		rec.BindShader(sg.Shader)
		for _, mg := range sg.Meshes {
			for _, g := range mg.Submeshes {
				rec.Draw(renderer.DrawCall{
					Shader:         sg.Shader,
					Mesh:           mg.Mesh,
					Submesh:        g.Submesh,
					IndexOffset:    g.IndexOffset,
					IndexCount:     g.IndexCount,
					InstanceOffset: g.InstaOffset,
					InstanceCount:  g.InstaCount,
					DynamicOffsets: offsets,
				})
			}
		}
	}
	rec.EndFrame()
}

func (b *Batcher) Stats() Stats {
	return b.stats
}

func (b *Batcher) Frame() uint64 {
	return b.frame
}

func (b *Batcher) Destroy() {
	for i, s := range b.streams {
		if s != nil {
			s.destroy()
			b.streams[i] = nil
		}
	}
}
