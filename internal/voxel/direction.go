package voxel

// Direction names one of the six chunk faces. Opposite faces differ only in
// the lowest bit.
type Direction uint8

const (
	DirUp    Direction = iota // +Y
	DirDown                   // -Y
	DirSouth                  // +Z
	DirNorth                  // -Z
	DirEast                   // +X
	DirWest                   // -X

	NumDirections = 6
)

var directionOffsets = [NumDirections]ChunkCoord{
	DirUp:    {0, 1, 0},
	DirDown:  {0, -1, 0},
	DirSouth: {0, 0, 1},
	DirNorth: {0, 0, -1},
	DirEast:  {1, 0, 0},
	DirWest:  {-1, 0, 0},
}

// Directions lists every face in enumeration order.
var Directions = [NumDirections]Direction{DirUp, DirDown, DirSouth, DirNorth, DirEast, DirWest}

// Opposite returns the facing direction.
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// Offset returns the unit chunk offset for the direction.
func (d Direction) Offset() ChunkCoord {
	return directionOffsets[d]
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirSouth:
		return "south"
	case DirNorth:
		return "north"
	case DirEast:
		return "east"
	case DirWest:
		return "west"
	}
	return "invalid"
}
