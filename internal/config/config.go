// Package config loads the settings for a chunkvault world.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full configuration of a world and its streaming loop.
type Config struct {
	World     World     `yaml:"world" toml:"world"`
	Streaming Streaming `yaml:"streaming" toml:"streaming"`
	Regions   Regions   `yaml:"regions" toml:"regions"`
	Tick      Tick      `yaml:"tick" toml:"tick"`
	Log       Log       `yaml:"log" toml:"log"`
	Observer  Observer  `yaml:"observer" toml:"observer"`
}

// Streaming holds the chunk load/unload radii and the per-tick work caps.
type Streaming struct {
	LoadRadius   int `yaml:"load_radius" toml:"load_radius"`
	UnloadRadius int `yaml:"unload_radius" toml:"unload_radius"`
	// Per-tick caps; 0 means no limit.
	MaxLoadsPerTick       int `yaml:"max_loads_per_tick" toml:"max_loads_per_tick"`
	MaxMeshUpdatesPerTick int `yaml:"max_mesh_updates_per_tick" toml:"max_mesh_updates_per_tick"`
	MaxMetaFlushesPerTick int `yaml:"max_meta_flushes_per_tick" toml:"max_meta_flushes_per_tick"`
	MetaFlushAgeSeconds   int `yaml:"meta_flush_age_seconds" toml:"meta_flush_age_seconds"`
}

// MetaFlushAge is how long an edit bucket may sit untouched before it is
// written to its region.
func (s Streaming) MetaFlushAge() time.Duration {
	return time.Duration(s.MetaFlushAgeSeconds) * time.Second
}

// Regions configures the open region file cache.
type Regions struct {
	CacheCapacity int `yaml:"cache_capacity" toml:"cache_capacity"`
}

// Tick configures the driver loop.
type Tick struct {
	Rate           int `yaml:"rate" toml:"rate"`
	SlowTickMillis int `yaml:"slow_tick_millis" toml:"slow_tick_millis"`
}

// Interval is the target duration of one tick.
func (t Tick) Interval() time.Duration {
	return time.Second / time.Duration(t.Rate)
}

// SlowTick is the duration above which a tick is logged with its profile.
func (t Tick) SlowTick() time.Duration {
	return time.Duration(t.SlowTickMillis) * time.Millisecond
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		World: World{
			Dir:        "world",
			Seed:       1,
			Generator:  GeneratorNoise,
			FlatHeight: 8,
			MinChunkY:  0,
			MaxChunkY:  7,
		},
		Streaming: Streaming{
			LoadRadius:            4,
			UnloadRadius:          6,
			MaxMeshUpdatesPerTick: 8,
			MaxMetaFlushesPerTick: 4,
			MetaFlushAgeSeconds:   300,
		},
		Regions:  Regions{CacheCapacity: 32},
		Tick:     Tick{Rate: 20, SlowTickMillis: 50},
		Log:      Log{Level: "info"},
		Observer: defaultObserver(),
	}
}

// Load reads path on top of Default. The format follows the extension:
// .yaml/.yml or .toml. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path in the format its
// extension names. An existing file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(Default())
	case ".toml":
		data, err = toml.Marshal(Default())
	default:
		return fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.World.validate(); err != nil {
		return err
	}
	s := c.Streaming
	if s.LoadRadius < 0 {
		return fmt.Errorf("%w: streaming.load_radius %d is negative", ErrInvalid, s.LoadRadius)
	}
	if s.UnloadRadius <= s.LoadRadius {
		return fmt.Errorf("%w: streaming.unload_radius %d must exceed load_radius %d", ErrInvalid, s.UnloadRadius, s.LoadRadius)
	}
	if s.MaxLoadsPerTick < 0 || s.MaxMeshUpdatesPerTick < 0 || s.MaxMetaFlushesPerTick < 0 {
		return fmt.Errorf("%w: streaming per-tick caps must not be negative", ErrInvalid)
	}
	if s.MetaFlushAgeSeconds < 0 {
		return fmt.Errorf("%w: streaming.meta_flush_age_seconds %d is negative", ErrInvalid, s.MetaFlushAgeSeconds)
	}
	if c.Regions.CacheCapacity < 1 {
		return fmt.Errorf("%w: regions.cache_capacity must be at least 1", ErrInvalid)
	}
	if c.Tick.Rate < 1 {
		return fmt.Errorf("%w: tick.rate must be at least 1", ErrInvalid)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return c.Observer.validate()
}
