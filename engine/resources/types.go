package resources

import (
	"encoding/binary"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlag = 0x2
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/**
 * @brief Represents a texture. Pixels are tightly packed rows of
 * ChannelCount bytes each.
 */
type Texture struct {
	/** @brief The texture Name. */
	Name string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The raw texture data (pixels). */
	Pixels []uint8
	/** @brief The staging buffer holding the uploaded pixels, nil until uploaded. */
	Buffer renderer.Buffer
}

func (t *Texture) HasTransparency() bool {
	return t.Flags&TextureFlagBits(TextureFlagHasTransparency) != 0
}

/** @brief A collection of texture uses */
type TextureUse int

const (
	TextureUseUnknown     TextureUse = 0x00
	TextureUseMapDiffuse  TextureUse = 0x01
	TextureUseMapSpecular TextureUse = 0x02
	TextureUseMapNormal   TextureUse = 0x03
)

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
)

/**
 * @brief Binds a texture file to a material slot with its sampling state.
 */
type TextureMap struct {
	/** @brief Registry handle of the Texture. */
	Texture containers.Handle
	/** @brief The Use of the texture */
	Use           TextureUse
	FilterMinify  TextureFilter
	FilterMagnify TextureFilter
	RepeatU       TextureRepeat
	RepeatV       TextureRepeat
}

/** @brief Size in bytes of one material record in the material stream. */
const MaterialDataSize = 32

/** @brief Value of Material.Slot before a slot is assigned. */
const NoSlot = ^uint32(0)

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * bumpiness, shininess and more.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief Registry handle of the Shader used to draw this material. */
	Shader containers.Handle
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief The material shininess, determines how concentrated the specular lighting is. */
	Shininess   float32
	DiffuseMap  TextureMap
	SpecularMap TextureMap
	NormalMap   TextureMap
	/** @brief The material generation. Incremented every time the material is changed. */
	Generation uint32
	/** @brief Index of the material record in the material stream. */
	Slot uint32
}

func NewMaterial(name string, shader containers.Handle) Material {
	return Material{
		Name:          name,
		Shader:        shader,
		DiffuseColour: math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		Shininess:     32,
		Slot:          NoSlot,
	}
}

// AppendData appends the material record: diffuse colour, shininess and the
// slot indices of the three texture maps, little endian.
func (m *Material) AppendData(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(m.DiffuseColour.X))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(m.DiffuseColour.Y))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(m.DiffuseColour.Z))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(m.DiffuseColour.W))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32Bits(m.Shininess))
	dst = binary.LittleEndian.AppendUint32(dst, m.DiffuseMap.Texture.Index)
	dst = binary.LittleEndian.AppendUint32(dst, m.SpecularMap.Texture.Index)
	dst = binary.LittleEndian.AppendUint32(dst, m.NormalMap.Texture.Index)
	return dst
}

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x0000008
)

/**
 * @brief A shader program description. Pipelines are built by the
 * renderer from it; the core only uses the handle as a batching key.
 */
type Shader struct {
	/** @brief The name of the shader. */
	Name string
	/** @brief The face cull mode to be used. Default is BACK if not supplied. */
	CullMode FaceCullMode
	/** @brief The name of the renderpass used by this shader. */
	RenderpassName string
	/** @brief The collection of stages. */
	Stages []ShaderStage
	/** @brief The collection of stage file names to be loaded (one per stage). Must align with stages array. */
	StageFilenames []string
}

/**
 * @brief Script source code. Scene script components copy Code; the
 * Generation is bumped on reload so compiled chunks can be dropped.
 */
type Script struct {
	Name       string
	Code       string
	Generation uint32
}
