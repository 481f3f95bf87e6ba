// Package physics holds spatial queries over a block grid.
package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/profiling"
	"chunkvault/internal/voxel"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 5.0

	// StepSize is the march increment along the ray.
	StepSize = float32(0.02)
)

// BlockQuerier answers block lookups in world space. Absent data reads as air.
type BlockQuerier interface {
	GetBlock(wc voxel.WorldCoord) voxel.Block
}

// RaycastResult stores the result of a raycast operation.
type RaycastResult struct {
	Block    voxel.Block
	Position voxel.WorldCoord
	// Adjacent is the last empty cell crossed before Position.
	Adjacent    voxel.WorldCoord
	HasAdjacent bool
	Distance    float32
	Hit         bool
}

// Raycast marches from start along direction in StepSize increments and
// stops at the first solid block between minDist and maxDist. Block cells
// span [x, x+1) on every axis.
func Raycast(start, direction mgl32.Vec3, minDist, maxDist float32, q BlockQuerier) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	if direction.Len() == 0 {
		return RaycastResult{}
	}
	direction = direction.Normalize()
	steps := int(maxDist / StepSize)

	var (
		result  RaycastResult
		last    voxel.WorldCoord
		hasLast bool
	)
	for i := 0; i <= steps; i++ {
		dist := float32(i) * StepSize
		if dist < minDist {
			continue
		}
		cell := voxel.WorldCoordFromVec(start.Add(direction.Mul(dist)))
		if hasLast && cell == last {
			continue
		}
		if b := q.GetBlock(cell); b.IsSolid() {
			result.Block = b
			result.Position = cell
			result.Adjacent = last
			result.HasAdjacent = hasLast
			result.Distance = dist
			result.Hit = true
			return result
		}
		last, hasLast = cell, true
	}
	return result
}
