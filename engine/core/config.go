package core

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EngineConfig is the on-disk configuration of an engine instance.
type EngineConfig struct {
	Application ApplicationConfig `toml:"application"`
	Logging     LoggingConfig     `toml:"logging"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
	Jobs        JobsConfig        `toml:"jobs"`
}

type ApplicationConfig struct {
	Name        string `toml:"name"`
	StartPosX   uint32 `toml:"start_pos_x"`
	StartPosY   uint32 `toml:"start_pos_y"`
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	// Headless skips the platform window, the renderer runs on host memory.
	Headless bool `toml:"headless"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	MaxFramesInFlight uint32 `toml:"max_frames_in_flight"`
	// Go duration string, e.g. "1s" or "250ms".
	FenceTimeout            string `toml:"fence_timeout"`
	InitialInstanceCapacity uint32 `toml:"initial_instance_capacity"`
	InitialSkinCapacity     uint32 `toml:"initial_skin_capacity"`
	InitialMorphCapacity    uint32 `toml:"initial_morph_capacity"`
}

type AssetsConfig struct {
	BasePath string `toml:"base_path"`
	Watch    bool   `toml:"watch"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML bytes on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (*EngineConfig, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Application: ApplicationConfig{
			Name:        "Anima",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			Headless:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Renderer: RendererConfig{
			MaxFramesInFlight:       2,
			FenceTimeout:            "1s",
			InitialInstanceCapacity: 1024,
			InitialSkinCapacity:     256,
			InitialMorphCapacity:    64,
		},
		Assets: AssetsConfig{
			BasePath: "assets",
			Watch:    false,
		},
		Jobs: JobsConfig{
			Workers:   runtime.NumCPU(),
			QueueSize: 256,
		},
	}
}

func (c *EngineConfig) Validate() error {
	if c.Renderer.MaxFramesInFlight < 1 || c.Renderer.MaxFramesInFlight > 3 {
		return fmt.Errorf("%w: max_frames_in_flight must be in [1, 3], got %d", ErrInvalidConfig, c.Renderer.MaxFramesInFlight)
	}
	if _, err := c.FenceTimeout(); err != nil {
		return err
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("%w: jobs.workers must be positive, got %d", ErrInvalidConfig, c.Jobs.Workers)
	}
	if c.Jobs.QueueSize < 1 {
		return fmt.Errorf("%w: jobs.queue_size must be positive, got %d", ErrInvalidConfig, c.Jobs.QueueSize)
	}
	return nil
}

// FenceTimeout is the bound on every wait for in-flight frames.
func (c *EngineConfig) FenceTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Renderer.FenceTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: fence_timeout %q: %v", ErrInvalidConfig, c.Renderer.FenceTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: fence_timeout must be positive", ErrInvalidConfig)
	}
	return d, nil
}
