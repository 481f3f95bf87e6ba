package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/voxel"
)

// PositionProvider reports the observer the streaming radius follows.
type PositionProvider interface {
	Position() mgl32.Vec3
}

// MeshBuilder rebuilds render data for a dirty chunk.
type MeshBuilder interface {
	BuildMesh(c *voxel.Chunk)
}

// SetBlockFunc writes a block anywhere in the world without neighbor
// invalidation. Generators use it for features that cross chunk borders.
type SetBlockFunc func(wc voxel.WorldCoord, b voxel.Block)

// TerrainGenerator fills a chunk that has no stored copy.
type TerrainGenerator interface {
	GenerateChunk(c *voxel.Chunk, setQuiet SetBlockFunc)
}

const (
	treeChance    = 97 // one column in treeChance grows a tree
	trunkHeight   = 4
	canopyRadius  = 2
	stoneDepth    = 4 // dirt layers between the surface and stone
	bedrockLevel  = 0
	defaultOctave = 4
)

// Generator builds terrain from a value-noise heightmap and scatters trees
// whose canopies may spill into neighboring chunks.
type Generator struct {
	seed       int64
	scale      float64
	baseHeight int
	amp        float64
	height     octaveNoise
}

// NewGenerator creates a generator for seed. All noise state is built here.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed:       seed,
		scale:      1.0 / 64.0,
		baseHeight: 32,
		amp:        32,
		height:     newOctaveNoise(seed, defaultOctave, 0.5, 2.0),
	}
}

// HeightAt computes the surface height (block Y) at world X,Z.
func (g *Generator) HeightAt(worldX, worldZ int) int {
	n := g.height.At(float64(worldX)*g.scale, float64(worldZ)*g.scale)
	return max(int(math.Floor(float64(g.baseHeight)+n*g.amp)), 0)
}

func (g *Generator) hasTree(worldX, worldZ int) bool {
	return hash2(int64(worldX), int64(worldZ), g.seed^0x7EE5)%treeChance == 0
}

// GenerateChunk fills c from the heightmap, then grows the trees rooted in it.
func (g *Generator) GenerateChunk(c *voxel.Chunk, setQuiet SetBlockFunc) {
	o := c.Coord.Origin()
	for lx := 0; lx < voxel.ChunkSize; lx++ {
		for lz := 0; lz < voxel.ChunkSize; lz++ {
			wx, wz := int(o.X)+lx, int(o.Z)+lz
			h := g.HeightAt(wx, wz)
			for ly := 0; ly < voxel.ChunkSize; ly++ {
				if b := columnBlock(int(o.Y)+ly, h); !b.IsAir() {
					c.SetBlock(lx, ly, lz, b)
				}
			}
			// A tree belongs to the chunk holding the block above the surface.
			base := h + 1
			if base >= int(o.Y) && base < int(o.Y)+voxel.ChunkSize && g.hasTree(wx, wz) {
				g.growTree(c, setQuiet, voxel.WorldCoord{X: int32(wx), Y: int32(base), Z: int32(wz)})
			}
		}
	}
}

func columnBlock(y, surface int) voxel.Block {
	switch {
	case y == bedrockLevel:
		return voxel.B(voxel.BlockTypeBedrock)
	case y > surface:
		return voxel.Air
	case y == surface:
		return voxel.B(voxel.BlockTypeGrass)
	case y > surface-stoneDepth:
		return voxel.B(voxel.BlockTypeDirt)
	default:
		return voxel.B(voxel.BlockTypeStone)
	}
}

func (g *Generator) growTree(c *voxel.Chunk, setQuiet SetBlockFunc, base voxel.WorldCoord) {
	set := func(wc voxel.WorldCoord, b voxel.Block) {
		if wc.ChunkCoord() == c.Coord {
			c.SetBlockAt(wc.Local(), b)
			return
		}
		setQuiet(wc, b)
	}
	top := base.Y + trunkHeight
	for dy := int32(-1); dy <= 1; dy++ {
		r := int32(canopyRadius)
		if dy == 1 {
			r--
		}
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				set(voxel.WorldCoord{X: base.X + dx, Y: top + dy, Z: base.Z + dz}, voxel.B(voxel.BlockTypeLeaves))
			}
		}
	}
	for y := base.Y; y <= top; y++ {
		set(voxel.WorldCoord{X: base.X, Y: y, Z: base.Z}, voxel.B(voxel.BlockTypeLog))
	}
}

// FlatGenerator builds a flat world: bedrock at Y=0, dirt up to Height-1,
// and grass at Height.
type FlatGenerator struct {
	Height int
}

func NewFlatGenerator(height int) *FlatGenerator {
	return &FlatGenerator{Height: height}
}

func (g *FlatGenerator) HeightAt(_, _ int) int { return g.Height }

func (g *FlatGenerator) GenerateChunk(c *voxel.Chunk, _ SetBlockFunc) {
	baseY := int(c.Coord.Origin().Y)
	for ly := 0; ly < voxel.ChunkSize; ly++ {
		y := baseY + ly
		var b voxel.Block
		switch {
		case y < 0 || y > g.Height:
			continue
		case y == bedrockLevel:
			b = voxel.B(voxel.BlockTypeBedrock)
		case y == g.Height:
			b = voxel.B(voxel.BlockTypeGrass)
		default:
			b = voxel.B(voxel.BlockTypeDirt)
		}
		for lx := 0; lx < voxel.ChunkSize; lx++ {
			for lz := 0; lz < voxel.ChunkSize; lz++ {
				c.SetBlock(lx, ly, lz, b)
			}
		}
	}
}
