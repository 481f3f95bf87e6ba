package game

import (
	"github.com/sirupsen/logrus"

	"chunkvault/internal/config"
	"chunkvault/internal/meshing"
	"chunkvault/internal/profiling"
	"chunkvault/internal/region"
	"chunkvault/internal/voxel"
	"chunkvault/internal/world"
)

// Session is one open world: the region cache, the chunk manager and the
// observer driving it.
type Session struct {
	cfg config.Config
	log logrus.FieldLogger

	Regions  *region.Manager
	Chunks   *world.ChunkManager
	Observer *PathObserver
	Mesher   *meshing.Builder

	ticks   int64
	pending []Interaction
}

// NewSession opens the world described by cfg. The observer starts on the
// generated surface at its first waypoint.
func NewSession(cfg config.Config, log logrus.FieldLogger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen := newGenerator(cfg.World)
	regions := region.NewManager(cfg.World.RegionsDir(), cfg.Regions.CacheCapacity, log)

	floorY := int32(cfg.World.MinChunkY) * voxel.ChunkSize
	ceilY := int32(cfg.World.MaxChunkY+1)*voxel.ChunkSize - 1
	var sx, sz float64
	if len(cfg.Observer.Waypoints) > 0 {
		sx, sz = cfg.Observer.Waypoints[0].X, cfg.Observer.Waypoints[0].Z
	}
	// the surface block sits at HeightAt, so the ground is one above it
	spawnY := float32(gen.HeightAt(int(sx), int(sz))+1) + EyeHeight
	observer := NewPathObserver(cfg.Observer, spawnY, floorY, ceilY)

	mesher := meshing.NewBuilder(log)
	chunks := world.NewChunkManager(world.Options{
		Streaming: cfg.Streaming,
		MinChunkY: int32(cfg.World.MinChunkY),
		MaxChunkY: int32(cfg.World.MaxChunkY),
		Regions:   regions,
		Generator: gen,
		Observer:  observer,
		Mesher:    mesher,
		Log:       log,
	})

	log.WithFields(logrus.Fields{
		"dir":       cfg.World.Dir,
		"generator": cfg.World.Generator,
		"seed":      cfg.World.Seed,
		"spawn":     observer.Position(),
	}).Info("world opened")

	return &Session{
		cfg:      cfg,
		log:      log,
		Regions:  regions,
		Chunks:   chunks,
		Observer: observer,
		Mesher:   mesher,
	}, nil
}

// Update advances the session by one tick of dt seconds.
func (s *Session) Update(dt float64) error {
	defer profiling.Track("session.Update")()
	s.Observer.Advance(dt, s.Chunks)
	s.runInteractions()
	err := s.Chunks.UpdateChunkLoading()
	s.ticks++
	return err
}

// Ticks is the number of completed updates.
func (s *Session) Ticks() int64 { return s.ticks }

// Close persists everything and releases the region files.
func (s *Session) Close() error {
	err := s.Chunks.Close()
	st := s.Chunks.Stats()
	s.log.WithFields(logrus.Fields{
		"ticks":  s.ticks,
		"loaded": st.Loaded,
		"saved":  st.Saved,
	}).Info("world closed")
	return err
}
