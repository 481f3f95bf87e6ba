package game

import (
	"chunkvault/internal/config"
	"chunkvault/internal/world"
)

// terrain is a generator that can also answer surface height queries, used to
// place the observer before any chunk is resident.
type terrain interface {
	world.TerrainGenerator
	HeightAt(worldX, worldZ int) int
}

func newGenerator(w config.World) terrain {
	if w.Generator == config.GeneratorFlat {
		return world.NewFlatGenerator(w.FlatHeight)
	}
	return world.NewGenerator(w.Seed)
}
