package physics_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/physics"
	"chunkvault/internal/voxel"
)

type grid map[voxel.WorldCoord]voxel.Block

func (g grid) GetBlock(wc voxel.WorldCoord) voxel.Block { return g[wc] }

func TestRaycast(t *testing.T) {
	w := grid{{X: 5}: voxel.B(voxel.BlockTypeStone)}

	start := mgl32.Vec3{0.5, 0.5, 0.5}
	dir := mgl32.Vec3{1, 0, 0}

	result := physics.Raycast(start, dir, 0.1, 10, w)
	if !result.Hit {
		t.Fatalf("Expected hit, got miss")
	}
	if result.Position != (voxel.WorldCoord{X: 5}) {
		t.Errorf("Expected hit at {5,0,0}, got %v", result.Position)
	}
	if !result.HasAdjacent || result.Adjacent != (voxel.WorldCoord{X: 4}) {
		t.Errorf("Expected adjacent at {4,0,0}, got %v", result.Adjacent)
	}
	// Ray starts at X=0.5 and enters the cell at X=5.0.
	if result.Distance < 4.49 || result.Distance > 4.53 {
		t.Errorf("Expected distance 4.5, got %f", result.Distance)
	}

	if r := physics.Raycast(start, dir, 0.1, 4.0, w); r.Hit {
		t.Errorf("Expected miss due to maxDist, got hit at %v", r.Position)
	}
	if r := physics.Raycast(start, mgl32.Vec3{0, 1, 0}, 0.1, 10, w); r.Hit {
		t.Errorf("Expected miss, got hit")
	}

	w[voxel.WorldCoord{X: 2, Y: 2, Z: 2}] = voxel.B(voxel.BlockTypeStone)
	diag := physics.Raycast(start, mgl32.Vec3{1, 1, 1}, 0.1, 10, w)
	if !diag.Hit || diag.Position != (voxel.WorldCoord{X: 2, Y: 2, Z: 2}) {
		t.Errorf("Expected hit at {2,2,2}, got %+v", diag)
	}
}

func TestRaycastSkipsNonSolid(t *testing.T) {
	w := grid{
		{X: 1}: voxel.B(voxel.BlockTypeWater),
		{X: 3}: voxel.B(voxel.BlockTypeGlass),
	}
	r := physics.Raycast(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 0, 10, w)
	if !r.Hit || r.Position.X != 3 || r.Adjacent.X != 2 {
		t.Errorf("Expected glass hit at x=3 after water, got %+v", r)
	}
}

func TestRaycastStartInsideBlock(t *testing.T) {
	w := grid{{}: voxel.B(voxel.BlockTypeStone)}
	r := physics.Raycast(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0, 0, 1}, 0, 3, w)
	if !r.Hit || r.HasAdjacent {
		t.Errorf("Expected hit without an empty cell before it, got %+v", r)
	}
}

func TestRaycastNegativeCoords(t *testing.T) {
	w := grid{{X: -3, Y: -1, Z: -1}: voxel.B(voxel.BlockTypeDirt)}
	r := physics.Raycast(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{-1, 0, 0}, 0, 5, w)
	if !r.Hit || r.Position != (voxel.WorldCoord{X: -3, Y: -1, Z: -1}) {
		t.Fatalf("Expected hit at {-3,-1,-1}, got %+v", r)
	}
	if r.Adjacent != (voxel.WorldCoord{X: -2, Y: -1, Z: -1}) {
		t.Errorf("Expected adjacent {-2,-1,-1}, got %v", r.Adjacent)
	}
}

func TestGroundLevel(t *testing.T) {
	w := grid{
		{X: 2, Y: 4, Z: -3}: voxel.B(voxel.BlockTypeGrass),
		{X: 2, Y: 9, Z: -3}: voxel.B(voxel.BlockTypeWater),
	}
	y, ok := physics.GroundLevel(2.7, -2.2, 20, 0, w)
	if !ok || y != 5 {
		t.Errorf("Expected ground at 5, got %v (%v)", y, ok)
	}
	if _, ok := physics.GroundLevel(0, 0, 20, 0, w); ok {
		t.Errorf("Expected empty column")
	}
}

func BenchmarkRaycast(b *testing.B) {
	w := grid{}
	for x := int32(0); x < 16; x++ {
		for y := int32(0); y < 16; y++ {
			w[voxel.WorldCoord{X: x, Y: y, Z: 5}] = voxel.B(voxel.BlockTypeGrass)
		}
	}
	start := mgl32.Vec3{0, 8, 0}
	dir := mgl32.Vec3{0, 0, 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = physics.Raycast(start, dir, 0.1, 10, w)
	}
}
