package region

import (
	"encoding/binary"
	"errors"
	"fmt"

	"chunkvault/internal/voxel"
)

// On-disk layout. Every integer is little-endian.
//
//	header      version u32 | chunkCount u16 | metaStart u32 | chunkStart u32
//	chunk index RegionVolume x (offset u32 | length u32 | flags u8)
//	meta index  RegionVolume x (packedCoord u32 | offset u32 | length u32 | flags u8)
//	data        chunk and meta blobs, appended in write order
const (
	FormatVersion = 1

	HeaderSize     = 14
	ChunkEntrySize = 9
	MetaEntrySize  = 13

	ChunkTableOffset = HeaderSize
	ChunkTableSize   = voxel.RegionVolume * ChunkEntrySize
	MetaTableOffset  = ChunkTableOffset + ChunkTableSize
	MetaTableSize    = voxel.RegionVolume * MetaEntrySize
	DataStart        = MetaTableOffset + MetaTableSize

	flagPresent = 1 << 0
)

var (
	// ErrCorrupt marks data that is present but cannot be decoded.
	ErrCorrupt = errors.New("region: corrupt data")
	// ErrOutOfRegion marks a chunk coordinate that does not belong to the region.
	ErrOutOfRegion = errors.New("region: chunk outside region")
	// ErrPaletteOverflow is returned when a chunk has more distinct blocks than the palette can index.
	ErrPaletteOverflow = errors.New("region: palette overflow")
	// ErrFileFull is returned when an append would overflow the 32-bit offsets.
	ErrFileFull = errors.New("region: file exceeds addressable size")
)

// Header is the fixed prefix of a region file.
type Header struct {
	Version    uint32
	ChunkCount uint16
	MetaStart  uint32
	ChunkStart uint32
}

func defaultHeader() Header {
	return Header{
		Version:    FormatVersion,
		MetaStart:  MetaTableOffset,
		ChunkStart: ChunkTableOffset,
	}
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:], h.Version)
	binary.LittleEndian.PutUint16(b[4:], h.ChunkCount)
	binary.LittleEndian.PutUint32(b[6:], h.MetaStart)
	binary.LittleEndian.PutUint32(b[10:], h.ChunkStart)
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes", ErrCorrupt, len(b))
	}
	h := Header{
		Version:    binary.LittleEndian.Uint32(b[0:]),
		ChunkCount: binary.LittleEndian.Uint16(b[4:]),
		MetaStart:  binary.LittleEndian.Uint32(b[6:]),
		ChunkStart: binary.LittleEndian.Uint32(b[10:]),
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unknown version %d", ErrCorrupt, h.Version)
	}
	if h.ChunkStart != ChunkTableOffset || h.MetaStart != MetaTableOffset {
		return h, fmt.Errorf("%w: table offsets %d/%d", ErrCorrupt, h.ChunkStart, h.MetaStart)
	}
	return h, nil
}

// ChunkEntry locates one chunk blob.
type ChunkEntry struct {
	Offset uint32
	Length uint32
	Flags  uint8
}

// Present reports whether the slot holds data.
func (e ChunkEntry) Present() bool {
	return e.Flags&flagPresent != 0 && e.Length > 0
}

func (e ChunkEntry) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], e.Offset)
	binary.LittleEndian.PutUint32(b[4:], e.Length)
	b[8] = e.Flags
}

func chunkEntryFrom(b []byte) ChunkEntry {
	return ChunkEntry{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Length: binary.LittleEndian.Uint32(b[4:]),
		Flags:  b[8],
	}
}

// MetaEntry locates one persisted edit bucket.
type MetaEntry struct {
	PackedCoord uint32
	Offset      uint32
	Length      uint32
	Flags       uint8
}

// Present reports whether the slot holds data.
func (e MetaEntry) Present() bool {
	return e.Flags&flagPresent != 0 && e.Length > 0
}

func (e MetaEntry) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], e.PackedCoord)
	binary.LittleEndian.PutUint32(b[4:], e.Offset)
	binary.LittleEndian.PutUint32(b[8:], e.Length)
	b[12] = e.Flags
}

func metaEntryFrom(b []byte) MetaEntry {
	return MetaEntry{
		PackedCoord: binary.LittleEndian.Uint32(b[0:]),
		Offset:      binary.LittleEndian.Uint32(b[4:]),
		Length:      binary.LittleEndian.Uint32(b[8:]),
		Flags:       b[12],
	}
}

// slotIndex maps a region-local chunk coordinate to its table slot.
func slotIndex(local voxel.ChunkCoord) int {
	return int(local.X) + int(local.Y)*voxel.RegionSize + int(local.Z)*voxel.RegionSize*voxel.RegionSize
}

func packLocal(local voxel.ChunkCoord) uint32 {
	return uint32(local.X) | uint32(local.Y)<<5 | uint32(local.Z)<<10
}

func unpackLocal(p uint32) voxel.ChunkCoord {
	return voxel.ChunkCoord{
		X: int32(p & 31),
		Y: int32(p >> 5 & 31),
		Z: int32(p >> 10 & 31),
	}
}

// FileName returns the region file name for a region coordinate.
func FileName(r voxel.RegionCoord) string {
	return fmt.Sprintf("r_%d.%d.%d", r.X, r.Y, r.Z)
}
