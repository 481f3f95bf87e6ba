package voxel

import "fmt"

// Chunk is a 16x16x16 block grid. Neighbor links are non-owning: whoever
// removes a chunk from the resident set must clear the links pointing at it.
type Chunk struct {
	Coord ChunkCoord

	blocks    [ChunkVolume]Block
	neighbors [NumDirections]*Chunk

	generated bool
	dirty     bool // mesh must be rebuilt
	hasMesh   bool
	modified  bool // differs from the persisted copy
}

// NewChunk creates an empty (all air) chunk at the given coordinate.
func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{
		Coord: coord,
		dirty: true,
	}
}

func checkLocal(x, y, z int) {
	if x < 0 || x >= ChunkSize || y < 0 || y >= ChunkSize || z < 0 || z >= ChunkSize {
		panic(fmt.Sprintf("voxel: local position (%d,%d,%d) outside chunk", x, y, z))
	}
}

// Block returns the block at local coordinates. Out-of-range coordinates panic.
func (c *Chunk) Block(x, y, z int) Block {
	checkLocal(x, y, z)
	return c.blocks[x+y*ChunkSize+z*ChunkSize*ChunkSize]
}

// SetBlock stores a block at local coordinates and reports whether the stored
// value changed. Only a change marks the chunk dirty and drops its mesh.
func (c *Chunk) SetBlock(x, y, z int, b Block) bool {
	checkLocal(x, y, z)
	return c.SetBlockByIndex(x+y*ChunkSize+z*ChunkSize*ChunkSize, b)
}

// BlockAt is Block addressed by LocalPos.
func (c *Chunk) BlockAt(p LocalPos) Block {
	return c.Block(int(p.X), int(p.Y), int(p.Z))
}

// SetBlockAt is SetBlock addressed by LocalPos.
func (c *Chunk) SetBlockAt(p LocalPos, b Block) bool {
	return c.SetBlock(int(p.X), int(p.Y), int(p.Z), b)
}

// BlockByIndex returns the block at flat index x + y*16 + z*256.
func (c *Chunk) BlockByIndex(i int) Block {
	return c.blocks[i]
}

// SetBlockByIndex is SetBlock addressed by flat index.
func (c *Chunk) SetBlockByIndex(i int, b Block) bool {
	if c.blocks[i] == b {
		return false
	}
	c.blocks[i] = b
	c.dirty = true
	c.hasMesh = false
	c.modified = true
	return true
}

// Fill sets every block in the chunk.
func (c *Chunk) Fill(b Block) {
	for i := range c.blocks {
		c.blocks[i] = b
	}
	c.dirty = true
	c.hasMesh = false
	c.modified = true
}

// Neighbor returns the resident chunk adjacent across face d, if linked.
func (c *Chunk) Neighbor(d Direction) *Chunk {
	return c.neighbors[d]
}

// SetNeighbor links (or with nil, unlinks) the chunk across face d.
func (c *Chunk) SetNeighbor(d Direction, n *Chunk) {
	c.neighbors[d] = n
}

// ClearNeighbors drops every outgoing link.
func (c *Chunk) ClearNeighbors() {
	c.neighbors = [NumDirections]*Chunk{}
}

// IsGenerated reports whether the chunk holds real content (decoded or generated).
func (c *Chunk) IsGenerated() bool { return c.generated }

// SetGenerated marks the chunk as holding real content.
func (c *Chunk) SetGenerated(v bool) { c.generated = v }

// IsDirty returns whether the chunk needs its mesh rebuilt.
func (c *Chunk) IsDirty() bool { return c.dirty }

// MarkDirty flags the chunk for a mesh rebuild without touching its blocks.
func (c *Chunk) MarkDirty() {
	c.dirty = true
	c.hasMesh = false
}

// SetClean marks the mesh as up to date.
func (c *Chunk) SetClean() {
	c.dirty = false
	c.hasMesh = true
}

// HasMesh reports whether a mesh built from the current blocks exists.
func (c *Chunk) HasMesh() bool { return c.hasMesh }

// IsModified reports whether the blocks differ from the last persisted copy.
func (c *Chunk) IsModified() bool { return c.modified }

// SetModified overrides the persisted-state flag. The region codec clears it
// after a decode or a successful save.
func (c *Chunk) SetModified(v bool) { c.modified = v }
