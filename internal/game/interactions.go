package game

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"chunkvault/internal/physics"
	"chunkvault/internal/voxel"
)

// Action is a scripted block interaction.
type Action int

const (
	ActionMine Action = iota
	ActionPlace
)

func (a Action) String() string {
	switch a {
	case ActionMine:
		return "mine"
	case ActionPlace:
		return "place"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Interaction is performed by the session on the tick it is due, looking from
// the observer's eye along Dir. A zero Dir looks along the walking heading.
type Interaction struct {
	Tick   int64
	Action Action
	Dir    mgl32.Vec3
	Block  voxel.Block // placed block for ActionPlace
}

// Mine clears the first solid block along dir within reach. It reports the
// cleared position.
func (s *Session) Mine(dir mgl32.Vec3) (voxel.WorldCoord, bool) {
	_, pos, ok := s.Chunks.BlockIntersectsView(s.Observer.Position(), dir, physics.MaxReachDistance)
	if !ok {
		return voxel.WorldCoord{}, false
	}
	s.Chunks.SetBlock(pos, voxel.Air)
	return pos, true
}

// Place puts b in the empty cell in front of the first solid block along dir.
// Placement is refused when the cell is occupied or outside the world's
// vertical range.
func (s *Session) Place(dir mgl32.Vec3, b voxel.Block) (voxel.WorldCoord, bool) {
	pos, ok := s.Chunks.BlockIntersectsViewForPlacement(s.Observer.Position(), dir, physics.MaxReachDistance)
	if !ok {
		return voxel.WorldCoord{}, false
	}
	cy := pos.ChunkCoord().Y
	if cy < int32(s.cfg.World.MinChunkY) || cy > int32(s.cfg.World.MaxChunkY) {
		return voxel.WorldCoord{}, false
	}
	if !s.Chunks.GetBlock(pos).IsAir() {
		return voxel.WorldCoord{}, false
	}
	s.Chunks.SetBlock(pos, b)
	return pos, true
}

// Schedule queues an interaction. Interactions run in tick order.
func (s *Session) Schedule(in Interaction) {
	i := len(s.pending)
	for i > 0 && s.pending[i-1].Tick > in.Tick {
		i--
	}
	s.pending = append(s.pending, Interaction{})
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = in
}

func (s *Session) runInteractions() {
	for len(s.pending) > 0 && s.pending[0].Tick <= s.ticks {
		in := s.pending[0]
		s.pending = s.pending[1:]

		dir := in.Dir
		if dir.Len() == 0 {
			dir = s.Observer.Front()
		}
		var (
			pos voxel.WorldCoord
			ok  bool
		)
		switch in.Action {
		case ActionMine:
			pos, ok = s.Mine(dir)
		case ActionPlace:
			pos, ok = s.Place(dir, in.Block)
		}
		s.log.WithField("action", in.Action.String()).
			WithField("pos", pos.String()).
			WithField("ok", ok).
			Debug("interaction")
	}
}
