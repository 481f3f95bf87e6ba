package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/config"
	"chunkvault/internal/physics"
)

// EyeHeight is the observer's eye level above the ground it stands on.
const EyeHeight = 1.62

// PathObserver walks a list of waypoints at a fixed speed and keeps its eye
// EyeHeight above the terrain. It is the position source for chunk
// streaming in the headless driver.
type PathObserver struct {
	pos       mgl32.Vec3
	waypoints []mgl32.Vec2 // x, z
	next      int
	speed     float32
	loop      bool

	// vertical scan range for ground following
	floorY int32
	ceilY  float32
}

// NewPathObserver places the observer at the first waypoint (or the origin)
// with its eye at y.
func NewPathObserver(cfg config.Observer, y float32, floorY, ceilY int32) *PathObserver {
	o := &PathObserver{
		speed:  float32(cfg.Speed),
		loop:   cfg.Loop,
		floorY: floorY,
		ceilY:  float32(ceilY),
	}
	for _, w := range cfg.Waypoints {
		o.waypoints = append(o.waypoints, mgl32.Vec2{float32(w.X), float32(w.Z)})
	}
	if len(o.waypoints) > 0 {
		o.pos = mgl32.Vec3{o.waypoints[0].X(), y, o.waypoints[0].Y()}
		o.next = 1
	} else {
		o.pos = mgl32.Vec3{0, y, 0}
	}
	return o
}

// Position implements world.PositionProvider.
func (o *PathObserver) Position() mgl32.Vec3 { return o.pos }

// Front is the unit horizontal heading towards the next waypoint, or -Z when
// the path is finished.
func (o *PathObserver) Front() mgl32.Vec3 {
	if o.Done() {
		return mgl32.Vec3{0, 0, -1}
	}
	t := o.waypoints[o.next%len(o.waypoints)]
	d := mgl32.Vec3{t.X() - o.pos.X(), 0, t.Y() - o.pos.Z()}
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// Done reports whether a non-looping path has reached its last waypoint.
func (o *PathObserver) Done() bool {
	if len(o.waypoints) < 2 {
		return true
	}
	return !o.loop && o.next >= len(o.waypoints)
}

// Advance moves the observer dt seconds along its path, then settles it on
// the ground found in q. Columns with no solid block keep the current height.
func (o *PathObserver) Advance(dt float64, q physics.BlockQuerier) {
	budget := o.speed * float32(dt)
	// a lap of coincident waypoints covers no distance
	stalled := 0
	for budget > 0 && !o.Done() && stalled < len(o.waypoints) {
		t := o.waypoints[o.next%len(o.waypoints)]
		d := mgl32.Vec2{t.X() - o.pos.X(), t.Y() - o.pos.Z()}
		dist := d.Len()
		if dist == 0 {
			stalled++
		} else {
			stalled = 0
		}
		if dist <= budget {
			o.pos[0], o.pos[2] = t.X(), t.Y()
			budget -= dist
			o.next++
			if o.loop && o.next >= len(o.waypoints) {
				o.next = 0
			}
			continue
		}
		step := d.Mul(budget / dist)
		o.pos[0] += step.X()
		o.pos[2] += step.Y()
		budget = 0
	}
	if q != nil {
		o.settle(q)
	}
}

func (o *PathObserver) settle(q physics.BlockQuerier) {
	if y, ok := physics.GroundLevel(o.pos.X(), o.pos.Z(), o.ceilY, o.floorY, q); ok {
		o.pos[1] = y + EyeHeight
	}
}
