package config

import (
	"fmt"
	"path/filepath"
)

// Terrain generator names accepted in World.Generator.
const (
	GeneratorNoise = "noise"
	GeneratorFlat  = "flat"
)

// World holds world generation and storage settings.
type World struct {
	Dir        string `yaml:"dir" toml:"dir"`
	Seed       int64  `yaml:"seed" toml:"seed"`
	Generator  string `yaml:"generator" toml:"generator"`
	FlatHeight int    `yaml:"flat_height" toml:"flat_height"`
	// Chunk layers outside [MinChunkY, MaxChunkY] are never loaded.
	MinChunkY int `yaml:"min_chunk_y" toml:"min_chunk_y"`
	MaxChunkY int `yaml:"max_chunk_y" toml:"max_chunk_y"`
}

// RegionsDir is where region files live.
func (w World) RegionsDir() string {
	return filepath.Join(w.Dir, "regions")
}

func (w World) validate() error {
	if w.Dir == "" {
		return fmt.Errorf("%w: world.dir is empty", ErrInvalid)
	}
	switch w.Generator {
	case GeneratorNoise, GeneratorFlat:
	default:
		return fmt.Errorf("%w: unknown world.generator %q", ErrInvalid, w.Generator)
	}
	if w.MinChunkY > w.MaxChunkY {
		return fmt.Errorf("%w: world.min_chunk_y %d above max_chunk_y %d", ErrInvalid, w.MinChunkY, w.MaxChunkY)
	}
	return nil
}
