package assets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
)

// MaterialConfig is the content of a .amt file: key = value lines, '#'
// starts a comment. Shader and map names are filesystem paths.
type MaterialConfig struct {
	Name            string
	ShaderName      string
	DiffuseColour   math.Vec4
	Shininess       float32
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
}

func LoadMaterialConfig(path string) (*MaterialConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMaterialConfig(f)
}

func ParseMaterialConfig(r io.Reader) (*MaterialConfig, error) {
	scanner := bufio.NewScanner(r)
	cfg := &MaterialConfig{
		DiffuseColour: math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		Shininess:     32,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			core.LogWarn("Skipping invalid material line: %s", line)
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			cfg.Name = value
		case "shader":
			cfg.ShaderName = value
		case "diffuse_colour":
			fields := strings.Fields(value)
			if len(fields) != 4 {
				return nil, fmt.Errorf("invalid diffuse_colour, expected 4 values: %s", line)
			}
			var c [4]float32
			for i, v := range fields {
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("invalid diffuse_colour value: %s", v)
				}
				c[i] = float32(f)
			}
			cfg.DiffuseColour = math.Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}
		case "shininess":
			f, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid shininess value: %s", value)
			}
			cfg.Shininess = float32(f)
		case "diffuse_map_name":
			cfg.DiffuseMapName = value
		case "specular_map_name":
			cfg.SpecularMapName = value
		case "normal_map_name":
			cfg.NormalMapName = value
		default:
			core.LogWarn("Unknown key '%s' found in material file. Skipping...", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *MaterialConfig) Validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("material name is required")
	}
	if cfg.ShaderName == "" {
		return fmt.Errorf("shader name is required")
	}
	c := cfg.DiffuseColour
	if !inRange(c.X) || !inRange(c.Y) || !inRange(c.Z) || !inRange(c.W) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}
	if cfg.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}

func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}

// Material resolves the shader and texture map paths in the filesystem.
// Unresolved maps stay empty, an unresolved shader falls back to the
// importer's default.
func (im *Importer) Material(cfg *MaterialConfig) resources.Material {
	shader := im.fs.Data(im.fs.Find(cfg.ShaderName))
	if shader.IsNull() {
		core.LogWarn("material '%s': shader '%s' not found", cfg.Name, cfg.ShaderName)
		shader = im.DefaultShader
	}
	m := resources.NewMaterial(cfg.Name, shader)
	m.DiffuseColour = cfg.DiffuseColour
	m.Shininess = cfg.Shininess
	m.DiffuseMap.Texture = im.texture(cfg.DiffuseMapName)
	m.SpecularMap.Texture = im.texture(cfg.SpecularMapName)
	m.NormalMap.Texture = im.texture(cfg.NormalMapName)
	return m
}

func (im *Importer) texture(path string) containers.Handle {
	if path == "" {
		return containers.NullHandle
	}
	h := im.fs.Data(im.fs.Find(path))
	if !containers.Is[resources.Texture](im.fs.Registry(), h) {
		core.LogWarn("texture '%s' not found", path)
		return containers.NullHandle
	}
	return h
}
