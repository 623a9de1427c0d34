// Package dustfall drives the falling-sand simulation substrate: it
// wires the material table, chunk residency, streaming, procedural
// generation, and the intent buffer into a per-frame loop.
package dustfall

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dustfall/dustfall/sim/stream"
	"github.com/dustfall/dustfall/sim/worldgen"
)

// Store kinds accepted by Config.Store.
const (
	StoreDir    = "dir"
	StoreRegion = "region"
)

// Config is the world configuration, loadable from yaml.
type Config struct {
	ChunkSize    uint32 `yaml:"chunk_size"`
	LoadRadius   uint32 `yaml:"load_radius"`
	UnloadRadius uint32 `yaml:"unload_radius"`
	Layer        uint8  `yaml:"layer"`

	SaveDir string `yaml:"save_dir"`
	Store   string `yaml:"store"`

	Seed          uint64 `yaml:"seed"`
	MaterialsFile string `yaml:"materials_file"`

	Generation worldgen.Params `yaml:"generation"`

	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a runnable configuration with an in-memory
// world (no save directory).
func DefaultConfig() Config {
	return Config{
		ChunkSize:    256,
		LoadRadius:   stream.DefaultLoadRadius,
		UnloadRadius: stream.DefaultUnloadRadius,
		Store:        StoreDir,
		Seed:         1,
		Generation:   worldgen.DefaultParams(),
	}
}

// Validate fails fast on configurations that would misbehave at
// runtime instead of at construction.
func (c Config) Validate() error {
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.UnloadRadius <= c.LoadRadius {
		return fmt.Errorf("unload_radius %d must be greater than load_radius %d",
			c.UnloadRadius, c.LoadRadius)
	}
	switch c.Store {
	case StoreDir, StoreRegion:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store)
	}
	return nil
}

// ReadConfig decodes a yaml configuration over the defaults. Unknown
// keys are errors so typos surface instead of silently defaulting.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig is ReadConfig over a file path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}
