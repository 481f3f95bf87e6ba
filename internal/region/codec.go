package region

import (
	"encoding/binary"
	"fmt"

	"chunkvault/internal/voxel"
)

const (
	chunkFormatVersion = 1
	chunkBlobHeader    = 4 // version u8 | palette size u16 | bits per index u8
	maxPaletteSize     = 65535

	metaCountSize  = 4
	metaRecordSize = 4
)

// paletteWidth picks the narrowest supported index width for n palette entries.
func paletteWidth(n int) (uint8, error) {
	switch {
	case n <= 16:
		return 4, nil
	case n <= 256:
		return 8, nil
	case n <= maxPaletteSize:
		return 16, nil
	}
	return 0, fmt.Errorf("%w: %d distinct blocks", ErrPaletteOverflow, n)
}

// EncodeChunk serialises the chunk's blocks as a palette followed by
// bit-packed palette indices.
func EncodeChunk(c *voxel.Chunk) ([]byte, error) {
	var indices [voxel.ChunkVolume]uint16
	palette := make([]voxel.Block, 0, 16)
	lookup := make(map[voxel.Block]uint16, 16)

	for i := range indices {
		b := c.BlockByIndex(i)
		idx, ok := lookup[b]
		if !ok {
			if len(palette) == maxPaletteSize {
				return nil, fmt.Errorf("%w: more than %d distinct blocks", ErrPaletteOverflow, maxPaletteSize)
			}
			idx = uint16(len(palette))
			lookup[b] = idx
			palette = append(palette, b)
		}
		indices[i] = idx
	}

	width, err := paletteWidth(len(palette))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, chunkBlobHeader+2*len(palette)+voxel.ChunkVolume*int(width)/8)
	buf = append(buf, chunkFormatVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(palette)))
	buf = append(buf, width)
	for _, b := range palette {
		buf = append(buf, byte(b.Type), b.Meta)
	}

	switch width {
	case 4:
		for i := 0; i < voxel.ChunkVolume; i += 2 {
			buf = append(buf, byte(indices[i]&0x0F)|byte(indices[i+1]&0x0F)<<4)
		}
	case 8:
		for _, idx := range indices {
			buf = append(buf, byte(idx))
		}
	case 16:
		for _, idx := range indices {
			buf = binary.LittleEndian.AppendUint16(buf, idx)
		}
	}
	return buf, nil
}

// DecodeChunk rehydrates a blob produced by EncodeChunk into c. The chunk is
// only written once the whole blob has been validated.
func DecodeChunk(data []byte, c *voxel.Chunk) error {
	if len(data) < chunkBlobHeader {
		return fmt.Errorf("%w: chunk blob is %d bytes", ErrCorrupt, len(data))
	}
	if data[0] != chunkFormatVersion {
		return fmt.Errorf("%w: unknown chunk version %d", ErrCorrupt, data[0])
	}
	n := int(binary.LittleEndian.Uint16(data[1:]))
	width := data[3]
	if n == 0 {
		return fmt.Errorf("%w: empty palette", ErrCorrupt)
	}
	if width != 4 && width != 8 && width != 16 {
		return fmt.Errorf("%w: unsupported index width %d", ErrCorrupt, width)
	}

	body := data[chunkBlobHeader:]
	if len(body) < 2*n {
		return fmt.Errorf("%w: palette needs %d bytes, have %d", ErrCorrupt, 2*n, len(body))
	}
	palette := make([]voxel.Block, n)
	for i := range palette {
		palette[i] = voxel.Block{Type: voxel.BlockType(body[2*i]), Meta: body[2*i+1]}
	}
	body = body[2*n:]

	need := voxel.ChunkVolume * int(width) / 8
	if len(body) < need {
		return fmt.Errorf("%w: indices need %d bytes, have %d", ErrCorrupt, need, len(body))
	}

	var blocks [voxel.ChunkVolume]voxel.Block
	for i := range blocks {
		var idx int
		switch width {
		case 4:
			v := body[i/2]
			if i%2 == 0 {
				idx = int(v & 0x0F)
			} else {
				idx = int(v >> 4)
			}
		case 8:
			idx = int(body[i])
		case 16:
			idx = int(binary.LittleEndian.Uint16(body[2*i:]))
		}
		if idx >= n {
			return fmt.Errorf("%w: palette index %d at cell %d, palette size %d", ErrCorrupt, idx, i, n)
		}
		blocks[i] = palette[idx]
	}

	for i, b := range blocks {
		c.SetBlockByIndex(i, b)
	}
	return nil
}

func packPos(p voxel.LocalPos) uint16 {
	return uint16(p.X&0x0F) | uint16(p.Y&0x0F)<<4 | uint16(p.Z&0x0F)<<8
}

func unpackPos(v uint16) voxel.LocalPos {
	return voxel.LocalPos{
		X: uint8(v & 0x0F),
		Y: uint8(v >> 4 & 0x0F),
		Z: uint8(v >> 8 & 0x0F),
	}
}

// EncodeMeta serialises a list of edits as a count followed by fixed records.
func EncodeMeta(edits []voxel.BlockEdit) []byte {
	buf := make([]byte, 0, metaCountSize+metaRecordSize*len(edits))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(edits)))
	for _, e := range edits {
		buf = append(buf, byte(e.Block.Type), e.Block.Meta)
		buf = binary.LittleEndian.AppendUint16(buf, packPos(e.Pos))
	}
	return buf
}

// DecodeMeta reads the edits in a meta blob. A declared count larger than the
// blob can hold is clamped to the complete records present; truncated reports
// whether that happened.
func DecodeMeta(data []byte) (edits []voxel.BlockEdit, truncated bool) {
	if len(data) < metaCountSize {
		return nil, len(data) > 0
	}
	count := int(binary.LittleEndian.Uint32(data))
	avail := (len(data) - metaCountSize) / metaRecordSize
	if count > avail {
		count = avail
		truncated = true
	}
	edits = make([]voxel.BlockEdit, 0, count)
	for i := 0; i < count; i++ {
		r := data[metaCountSize+i*metaRecordSize:]
		edits = append(edits, voxel.BlockEdit{
			Block: voxel.Block{Type: voxel.BlockType(r[0]), Meta: r[1]},
			Pos:   unpackPos(binary.LittleEndian.Uint16(r[2:])),
		})
	}
	return edits, truncated
}
