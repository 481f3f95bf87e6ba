package voxel

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChunkSize is the edge length of a chunk in blocks.
	ChunkSize = 16
	// ChunkVolume is the number of blocks in a chunk.
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
	// RegionSize is the edge length of a region in chunks.
	RegionSize = 32
	// RegionVolume is the number of chunk slots in a region.
	RegionVolume = RegionSize * RegionSize * RegionSize
)

// WorldCoord is a block position in world space.
type WorldCoord struct {
	X, Y, Z int32
}

// ChunkCoord is a chunk position in chunk space.
type ChunkCoord struct {
	X, Y, Z int32
}

// RegionCoord is a region position in region space.
type RegionCoord struct {
	X, Y, Z int32
}

// LocalPos is a block position inside a chunk, each axis in [0,16).
type LocalPos struct {
	X, Y, Z uint8
}

// Index returns the flat block index (x + y*16 + z*256).
func (p LocalPos) Index() int {
	return int(p.X) + int(p.Y)*ChunkSize + int(p.Z)*ChunkSize*ChunkSize
}

// LocalPosFromIndex is the inverse of LocalPos.Index.
func LocalPosFromIndex(i int) LocalPos {
	return LocalPos{
		X: uint8(i % ChunkSize),
		Y: uint8(i / ChunkSize % ChunkSize),
		Z: uint8(i / (ChunkSize * ChunkSize)),
	}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func mod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// WorldCoordFromVec returns the block containing the given world-space point.
func WorldCoordFromVec(v mgl32.Vec3) WorldCoord {
	return WorldCoord{
		X: int32(math.Floor(float64(v.X()))),
		Y: int32(math.Floor(float64(v.Y()))),
		Z: int32(math.Floor(float64(v.Z()))),
	}
}

// ChunkCoord returns the chunk containing the block.
func (w WorldCoord) ChunkCoord() ChunkCoord {
	return ChunkCoord{
		X: floorDiv(w.X, ChunkSize),
		Y: floorDiv(w.Y, ChunkSize),
		Z: floorDiv(w.Z, ChunkSize),
	}
}

// Local returns the block's position inside its chunk.
func (w WorldCoord) Local() LocalPos {
	return LocalPos{
		X: uint8(mod(w.X, ChunkSize)),
		Y: uint8(mod(w.Y, ChunkSize)),
		Z: uint8(mod(w.Z, ChunkSize)),
	}
}

// Vec returns the world-space corner of the block.
func (w WorldCoord) Vec() mgl32.Vec3 {
	return mgl32.Vec3{float32(w.X), float32(w.Y), float32(w.Z)}
}

func (w WorldCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", w.X, w.Y, w.Z)
}

// RegionCoord returns the region containing the chunk.
func (c ChunkCoord) RegionCoord() RegionCoord {
	return RegionCoord{
		X: floorDiv(c.X, RegionSize),
		Y: floorDiv(c.Y, RegionSize),
		Z: floorDiv(c.Z, RegionSize),
	}
}

// RegionLocal returns the chunk's position relative to its region's origin.
func (c ChunkCoord) RegionLocal() ChunkCoord {
	r := c.RegionCoord()
	return ChunkCoord{
		X: c.X - r.X*RegionSize,
		Y: c.Y - r.Y*RegionSize,
		Z: c.Z - r.Z*RegionSize,
	}
}

// Origin returns the world coordinate of the chunk's local (0,0,0) block.
func (c ChunkCoord) Origin() WorldCoord {
	return WorldCoord{X: c.X * ChunkSize, Y: c.Y * ChunkSize, Z: c.Z * ChunkSize}
}

// World converts a position inside this chunk to world space.
func (c ChunkCoord) World(p LocalPos) WorldCoord {
	o := c.Origin()
	return WorldCoord{X: o.X + int32(p.X), Y: o.Y + int32(p.Y), Z: o.Z + int32(p.Z)}
}

// Add returns the face-adjacent chunk coordinate in direction d.
func (c ChunkCoord) Add(d Direction) ChunkCoord {
	o := d.Offset()
	return ChunkCoord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Chebyshev returns max(|dx|,|dy|,|dz|) between two chunk coordinates.
func (c ChunkCoord) Chebyshev(o ChunkCoord) int32 {
	return max(abs32(c.X-o.X), abs32(c.Y-o.Y), abs32(c.Z-o.Z))
}

// Hash mixes the three axes into a single value suitable for map sharding.
func (c ChunkCoord) Hash() uint64 {
	return hash3(c.X, c.Y, c.Z)
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Origin returns the coordinate of the region's first chunk.
func (r RegionCoord) Origin() ChunkCoord {
	return ChunkCoord{X: r.X * RegionSize, Y: r.Y * RegionSize, Z: r.Z * RegionSize}
}

// Hash mixes the three axes into a single value.
func (r RegionCoord) Hash() uint64 {
	return hash3(r.X, r.Y, r.Z)
}

func (r RegionCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", r.X, r.Y, r.Z)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(x, y, z int32) uint64 {
	ux := uint64(uint32(x))
	uy := uint64(uint32(y))
	uz := uint64(uint32(z))
	return mix64(mix64(mix64(ux)^uy) ^ uz)
}
