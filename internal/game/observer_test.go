package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/config"
	"chunkvault/internal/voxel"
)

type columnGrid map[[2]int32]int32 // (x,z) -> top solid y

func (g columnGrid) GetBlock(wc voxel.WorldCoord) voxel.Block {
	if top, ok := g[[2]int32{wc.X, wc.Z}]; ok && wc.Y <= top {
		return voxel.B(voxel.BlockTypeStone)
	}
	return voxel.Air
}

func TestPathObserverWalk(t *testing.T) {
	tests := []struct {
		name string
		loop bool
		dt   float64
		want mgl32.Vec3
		done bool
	}{
		{"partway", false, 1, mgl32.Vec3{2, 10, 0}, false},
		{"past corner", false, 3, mgl32.Vec3{4, 10, 2}, false},
		{"clamped at end", false, 100, mgl32.Vec3{4, 10, 4}, true},
		// 8 blocks to the last waypoint, then 4 along the diagonal home
		{"loops back", true, 6, mgl32.Vec3{4 - 2*math.Sqrt2, 10, 4 - 2*math.Sqrt2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewPathObserver(config.Observer{
				Speed:     2,
				Loop:      tt.loop,
				Waypoints: []config.Waypoint{{X: 0, Z: 0}, {X: 4, Z: 0}, {X: 4, Z: 4}},
			}, 10, 0, 32)
			o.Advance(tt.dt, nil)
			if !o.Position().ApproxEqualThreshold(tt.want, 1e-3) {
				t.Errorf("Expected %v, got %v", tt.want, o.Position())
			}
			if o.Done() != tt.done {
				t.Errorf("Expected done=%v", tt.done)
			}
		})
	}
}

func TestPathObserverFollowsGround(t *testing.T) {
	grid := columnGrid{{0, 0}: 3, {1, 0}: 7}
	o := NewPathObserver(config.Observer{
		Speed:     1,
		Waypoints: []config.Waypoint{{X: 0.5, Z: 0.5}, {X: 3.5, Z: 0.5}},
	}, 50, 0, 32)

	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }
	o.Advance(0, grid)
	if y := o.Position().Y(); !near(y, 4+EyeHeight) {
		t.Errorf("Expected eye at %v, got %v", 4+EyeHeight, y)
	}
	o.Advance(1, grid)
	if y := o.Position().Y(); !near(y, 8+EyeHeight) {
		t.Errorf("Expected to climb to %v, got %v", 8+EyeHeight, y)
	}
	// empty column: height is kept
	o.Advance(1, grid)
	if y := o.Position().Y(); !near(y, 8+EyeHeight) {
		t.Errorf("Expected height kept over a hole, got %v", y)
	}
}

func TestPathObserverDegenerate(t *testing.T) {
	o := NewPathObserver(config.Observer{Speed: 5, Loop: true, Waypoints: []config.Waypoint{{X: 1, Z: 1}, {X: 1, Z: 1}}}, 0, 0, 16)
	o.Advance(10, nil)
	if got := o.Position(); got.X() != 1 || got.Z() != 1 {
		t.Errorf("coincident waypoints moved the observer to %v", got)
	}
	if f := NewPathObserver(config.Observer{}, 0, 0, 16).Front(); f != (mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Expected default heading, got %v", f)
	}
}
