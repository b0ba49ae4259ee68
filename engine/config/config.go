package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

const DefaultPath = "christmas-tree.toml"

type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Renderer struct {
	// Number of frames allowed in flight. Bounds the frame slot pool.
	FramesInFlight uint8 `toml:"frames_in_flight"`
	// Fence and acquire waits abort the run after this many milliseconds.
	SyncTimeoutMs uint32 `toml:"sync_timeout_ms"`
	// Run the snowfall update on the CPU worker pool instead of the
	// compute queue. For devices without a usable compute family.
	SoftwareSimulation bool       `toml:"software_simulation"`
	ClearColor         [4]float32 `toml:"clear_color"`
	// Watch the compiled shader directory and rebuild pipelines on change.
	WatchShaders bool   `toml:"watch_shaders"`
	ShaderDir    string `toml:"shader_dir"`
}

type Simulation struct {
	Snowflakes int   `toml:"snowflakes"`
	Seed       int64 `toml:"seed"`
}

type Config struct {
	Window     Window     `toml:"window"`
	Renderer   Renderer   `toml:"renderer"`
	Simulation Simulation `toml:"simulation"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Vulkan Christmas Tree",
			Width:  1600,
			Height: 900,
		},
		Renderer: Renderer{
			FramesInFlight:     2,
			SyncTimeoutMs:      5000,
			SoftwareSimulation: false,
			ClearColor:         [4]float32{0.0157, 0.0, 0.3607, 1.0},
			WatchShaders:       false,
			ShaderDir:          "assets/shaders",
		},
		Simulation: Simulation{
			Snowflakes: 10000,
			Seed:       0,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("no config file at %s, using defaults", path)
			return cfg, nil
		}
		core.LogError("failed to read config %s: %s", path, err)
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		core.LogError("failed to parse config %s: %s", path, err)
		return nil, err
	}

	if cfg.Renderer.FramesInFlight == 0 {
		cfg.Renderer.FramesInFlight = 2
	}
	if cfg.Simulation.Snowflakes <= 0 {
		cfg.Simulation.Snowflakes = Default().Simulation.Snowflakes
	}

	return cfg, nil
}
