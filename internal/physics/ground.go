package physics

import (
	"math"

	"chunkvault/internal/voxel"
)

// GroundLevel returns the top face of the highest solid block in the column
// at (x, z), scanning down from fromY to floorY. ok is false when the column
// is empty over that range.
func GroundLevel(x, z, fromY float32, floorY int32, q BlockQuerier) (float32, bool) {
	wx := int32(math.Floor(float64(x)))
	wz := int32(math.Floor(float64(z)))
	for y := int32(math.Floor(float64(fromY))); y >= floorY; y-- {
		if q.GetBlock(voxel.WorldCoord{X: wx, Y: y, Z: wz}).IsSolid() {
			return float32(y) + 1, true
		}
	}
	return 0, false
}
