package voxel

import "time"

// BlockEdit is one buffered write into a chunk that was not resident.
type BlockEdit struct {
	Pos   LocalPos
	Block Block
}

// MetaBucket collects the edits aimed at one absent chunk.
type MetaBucket struct {
	Edits       []BlockEdit
	LastTouched time.Time
}

// Add appends an edit and refreshes the bucket's timestamp.
func (b *MetaBucket) Add(pos LocalPos, blk Block, now time.Time) {
	b.Edits = append(b.Edits, BlockEdit{Pos: pos, Block: blk})
	b.LastTouched = now
}

// Apply writes the edits into c in order, so later edits win.
func (b *MetaBucket) Apply(c *Chunk) int {
	changed := 0
	for _, e := range b.Edits {
		if c.SetBlockAt(e.Pos, e.Block) {
			changed++
		}
	}
	return changed
}

// Len returns the number of buffered edits.
func (b *MetaBucket) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Edits)
}
