package world

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/config"
	"chunkvault/internal/physics"
	"chunkvault/internal/profiling"
	"chunkvault/internal/region"
	"chunkvault/internal/voxel"
)

// Options are the dependencies of a ChunkManager.
type Options struct {
	Streaming config.Streaming
	MinChunkY int32
	MaxChunkY int32

	Regions   *region.Manager
	Generator TerrainGenerator
	Observer  PositionProvider
	Mesher    MeshBuilder // optional
	Log       logrus.FieldLogger
	Now       func() time.Time // defaults to time.Now
}

// ChunkManager owns the resident chunks. It streams them in and out around
// the observer, persists them through the region cache and buffers writes
// aimed at chunks that are not resident. It is not safe for concurrent use
// apart from Stats.
type ChunkManager struct {
	opts   Options
	log    logrus.FieldLogger
	now    func() time.Time
	chunks map[voxel.ChunkCoord]*voxel.Chunk
	edits  *EditBuffer
	stats  counters

	// resident chunks whose applied stored edits could not be cleared; the
	// clear is retried before the chunk is saved
	staleMeta map[voxel.ChunkCoord]struct{}
	clearMeta func(rf *region.File, cc voxel.ChunkCoord) error
}

// NewChunkManager creates a manager with no resident chunks.
func NewChunkManager(opts Options) *ChunkManager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &ChunkManager{
		opts:   opts,
		log:    opts.Log,
		now:    opts.Now,
		chunks: make(map[voxel.ChunkCoord]*voxel.Chunk),
		edits:  NewEditBuffer(),

		staleMeta: make(map[voxel.ChunkCoord]struct{}),
		clearMeta: (*region.File).ClearMetaData,
	}
}

func (m *ChunkManager) inWorld(cc voxel.ChunkCoord) bool {
	return cc.Y >= m.opts.MinChunkY && cc.Y <= m.opts.MaxChunkY
}

// GetChunk returns the resident chunk at cc, or nil.
func (m *ChunkManager) GetChunk(cc voxel.ChunkCoord) *voxel.Chunk {
	return m.chunks[cc]
}

// GetOrCreateChunk returns the resident chunk at cc, loading it on a miss.
// It returns nil for coordinates outside the world's vertical range.
func (m *ChunkManager) GetOrCreateChunk(cc voxel.ChunkCoord) *voxel.Chunk {
	if c := m.chunks[cc]; c != nil {
		return c
	}
	return m.LoadChunk(cc)
}

// LoadChunk makes cc resident: from its region when stored, otherwise from
// the terrain generator. Persisted and buffered edits are applied on top.
// Region failures are logged and fall back to generation.
func (m *ChunkManager) LoadChunk(cc voxel.ChunkCoord) *voxel.Chunk {
	return m.load(cc, true)
}

// load does the work of LoadChunk. Bulk loads link neighbors without
// invalidating them.
func (m *ChunkManager) load(cc voxel.ChunkCoord, dirtyNeighbors bool) *voxel.Chunk {
	if !m.inWorld(cc) {
		return nil
	}
	if c := m.chunks[cc]; c != nil {
		return c
	}
	defer profiling.Track("world.LoadChunk")()
	log := m.log.WithField("chunk", cc.String())

	c := voxel.NewChunk(cc)
	rf, err := m.opts.Regions.Open(cc.RegionCoord())
	if err != nil {
		log.WithError(err).Warn("region unavailable, generating chunk")
	}

	found := false
	if rf != nil {
		found, err = rf.LoadChunk(c)
		if err != nil {
			if errors.Is(err, region.ErrCorrupt) {
				m.stats.decodeFailures.Inc()
			}
			log.WithError(err).Warn("stored chunk unreadable, regenerating")
			c = voxel.NewChunk(cc)
			found = false
		}
	}

	m.chunks[cc] = c
	m.stats.resident.Inc()
	if !found {
		m.generate(c)
	}
	c.SetGenerated(true)

	if rf != nil {
		var stored voxel.MetaBucket
		ok, err := rf.LoadMetaData(cc, &stored)
		switch {
		case err != nil:
			log.WithError(err).Warn("stored edits unreadable, skipping")
		case ok:
			stored.Apply(c)
			if err := m.clearMeta(rf, cc); err != nil {
				log.WithError(err).Error("clear applied edits, retrying before save")
				m.staleMeta[cc] = struct{}{}
			}
		}
	}
	if b := m.edits.Take(cc); b != nil {
		b.Apply(c)
		m.stats.pendingBuckets.Store(int64(m.edits.Len()))
	}

	m.link(c, dirtyNeighbors)
	m.stats.loaded.Inc()
	log.WithField("generated", !found).Debug("chunk loaded")
	return c
}

func (m *ChunkManager) generate(c *voxel.Chunk) {
	defer profiling.Track("world.GenerateChunk")()
	touched := make(map[voxel.ChunkCoord]struct{})
	m.opts.Generator.GenerateChunk(c, func(wc voxel.WorldCoord, b voxel.Block) {
		cc := wc.ChunkCoord()
		touched[cc] = struct{}{}
		if t := m.chunks[cc]; t != nil {
			t.SetBlockAt(wc.Local(), b)
			return
		}
		m.edits.Add(cc, wc.Local(), b, m.now())
	})
	for cc := range touched {
		if t := m.chunks[cc]; t != nil && t != c {
			t.MarkDirty()
		}
	}
	m.stats.pendingBuckets.Store(int64(m.edits.Len()))
	m.stats.generated.Inc()
}

func (m *ChunkManager) link(c *voxel.Chunk, dirtyNeighbors bool) {
	for _, d := range voxel.Directions {
		n := m.chunks[c.Coord.Add(d)]
		if n == nil {
			continue
		}
		c.SetNeighbor(d, n)
		n.SetNeighbor(d.Opposite(), c)
		if dirtyNeighbors {
			n.MarkDirty()
		}
	}
}

// UnloadChunk saves cc if it changed since it was loaded, unlinks it from its
// neighbors and drops it. When the save fails the chunk stays resident.
func (m *ChunkManager) UnloadChunk(cc voxel.ChunkCoord) error {
	c := m.chunks[cc]
	if c == nil {
		return nil
	}
	if err := m.save(c); err != nil {
		return err
	}
	for _, d := range voxel.Directions {
		if n := c.Neighbor(d); n != nil {
			n.SetNeighbor(d.Opposite(), nil)
			n.MarkDirty()
		}
	}
	c.ClearNeighbors()
	delete(m.chunks, cc)
	m.stats.resident.Dec()
	m.stats.unloaded.Inc()
	m.log.WithField("chunk", cc.String()).Debug("chunk unloaded")
	return nil
}

func (m *ChunkManager) save(c *voxel.Chunk) error {
	_, stale := m.staleMeta[c.Coord]
	if !c.IsModified() && !stale {
		return nil
	}
	rf, err := m.opts.Regions.Open(c.Coord.RegionCoord())
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", c.Coord, err)
	}
	if stale {
		// stored edits must not replay over this chunk on its next load
		if err := m.clearMeta(rf, c.Coord); err != nil {
			return fmt.Errorf("clear stored edits for %v: %w", c.Coord, err)
		}
		delete(m.staleMeta, c.Coord)
	}
	if !c.IsModified() {
		return nil
	}
	if err := rf.SaveChunk(c); err != nil {
		return fmt.Errorf("save chunk %v: %w", c.Coord, err)
	}
	m.stats.saved.Inc()
	return nil
}

// UpdateChunkLoading runs one streaming step around the observer: load the
// missing chunks within LoadRadius nearest first, unload the ones beyond
// UnloadRadius, flush expired edit buckets and rebuild dirty meshes. Errors
// for single chunks are logged and joined; the step always runs to the end.
func (m *ChunkManager) UpdateChunkLoading() error {
	defer profiling.Track("world.UpdateChunkLoading")()
	center := voxel.WorldCoordFromVec(m.opts.Observer.Position()).ChunkCoord()
	var errs []error

	missing := m.missingAround(center)
	if limit := m.opts.Streaming.MaxLoadsPerTick; limit > 0 && len(missing) > limit {
		missing = missing[:limit]
	}
	for _, cc := range missing {
		m.load(cc, false)
	}

	for _, cc := range m.farChunks(center) {
		if err := m.UnloadChunk(cc); err != nil {
			m.log.WithError(err).WithField("chunk", cc.String()).Error("unload failed, keeping chunk")
			errs = append(errs, err)
		}
	}

	if err := m.maintainEdits(); err != nil {
		errs = append(errs, err)
	}
	m.updateMeshes(center)
	return errors.Join(errs...)
}

// missingAround lists the coordinates within LoadRadius of center that are
// in the world and not resident, nearest first.
func (m *ChunkManager) missingAround(center voxel.ChunkCoord) []voxel.ChunkCoord {
	r := int32(m.opts.Streaming.LoadRadius)
	var out []voxel.ChunkCoord
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				cc := voxel.ChunkCoord{X: center.X + dx, Y: center.Y + dy, Z: center.Z + dz}
				if !m.inWorld(cc) || m.chunks[cc] != nil {
					continue
				}
				out = append(out, cc)
			}
		}
	}
	sortByDistance(out, center)
	return out
}

func (m *ChunkManager) farChunks(center voxel.ChunkCoord) []voxel.ChunkCoord {
	limit := int32(m.opts.Streaming.UnloadRadius)
	var out []voxel.ChunkCoord
	for cc := range m.chunks {
		if cc.Chebyshev(center) > limit {
			out = append(out, cc)
		}
	}
	sortByDistance(out, center)
	return out
}

func sortByDistance(ccs []voxel.ChunkCoord, center voxel.ChunkCoord) {
	sq := func(cc voxel.ChunkCoord) int64 {
		dx, dy, dz := int64(cc.X-center.X), int64(cc.Y-center.Y), int64(cc.Z-center.Z)
		return dx*dx + dy*dy + dz*dz
	}
	sort.Slice(ccs, func(i, j int) bool {
		a, b := ccs[i], ccs[j]
		if da, db := a.Chebyshev(center), b.Chebyshev(center); da != db {
			return da < db
		}
		if da, db := sq(a), sq(b); da != db {
			return da < db
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
}

func (m *ChunkManager) maintainEdits() error {
	s := m.opts.Streaming
	if m.edits.Len() == 0 {
		return nil
	}
	_, err := m.edits.Maintain(m.now(), s.MetaFlushAge(), s.MaxMetaFlushesPerTick, m.flushBucket)
	m.stats.pendingBuckets.Store(int64(m.edits.Len()))
	return err
}

func (m *ChunkManager) flushBucket(cc voxel.ChunkCoord, b *voxel.MetaBucket) error {
	log := m.log.WithField("chunk", cc.String())
	rf, err := m.opts.Regions.Open(cc.RegionCoord())
	if err == nil {
		err = rf.SaveMetaData(cc, b)
	}
	if err != nil {
		log.WithError(err).WithField("edits", b.Len()).Error("flush edits failed, dropping them")
		return fmt.Errorf("flush edits for %v: %w", cc, err)
	}
	m.stats.metaFlushes.Inc()
	log.WithField("edits", b.Len()).Debug("edits flushed")
	return nil
}

func (m *ChunkManager) updateMeshes(center voxel.ChunkCoord) {
	if m.opts.Mesher == nil {
		return
	}
	defer profiling.Track("world.updateMeshes")()
	var dirty []voxel.ChunkCoord
	for cc, c := range m.chunks {
		if c.IsDirty() {
			dirty = append(dirty, cc)
		}
	}
	sortByDistance(dirty, center)
	if limit := m.opts.Streaming.MaxMeshUpdatesPerTick; limit > 0 && len(dirty) > limit {
		dirty = dirty[:limit]
	}
	for _, cc := range dirty {
		c := m.chunks[cc]
		m.opts.Mesher.BuildMesh(c)
		c.SetClean()
		m.stats.meshesBuilt.Inc()
	}
}

// GetBlock returns the block at wc, or air when its chunk is not resident.
func (m *ChunkManager) GetBlock(wc voxel.WorldCoord) voxel.Block {
	c := m.chunks[wc.ChunkCoord()]
	if c == nil {
		return voxel.Air
	}
	return c.BlockAt(wc.Local())
}

// SetBlock writes b at wc. A resident chunk is written directly and the
// neighbors sharing the touched faces are marked dirty. For an absent chunk
// the write is buffered until the chunk loads or the bucket expires.
func (m *ChunkManager) SetBlock(wc voxel.WorldCoord, b voxel.Block) {
	cc, local := wc.ChunkCoord(), wc.Local()
	c := m.chunks[cc]
	if c == nil {
		m.edits.Add(cc, local, b, m.now())
		m.stats.pendingBuckets.Store(int64(m.edits.Len()))
		return
	}
	c.SetBlockAt(local, b)

	const last = voxel.ChunkSize - 1
	edges := [...]struct {
		at   bool
		side voxel.Direction
	}{
		{local.X == 0, voxel.DirWest}, {local.X == last, voxel.DirEast},
		{local.Y == 0, voxel.DirDown}, {local.Y == last, voxel.DirUp},
		{local.Z == 0, voxel.DirNorth}, {local.Z == last, voxel.DirSouth},
	}
	for _, e := range edges {
		if !e.at {
			continue
		}
		if n := m.chunks[cc.Add(e.side)]; n != nil {
			n.MarkDirty()
		}
	}
}

// BlockIntersectsView returns the first solid block along the view ray and
// its position.
func (m *ChunkManager) BlockIntersectsView(origin, dir mgl32.Vec3, reach float32) (voxel.Block, voxel.WorldCoord, bool) {
	r := physics.Raycast(origin, dir, 0, reach, m)
	return r.Block, r.Position, r.Hit
}

// BlockIntersectsViewForPlacement returns the empty cell just before the
// first solid block along the view ray.
func (m *ChunkManager) BlockIntersectsViewForPlacement(origin, dir mgl32.Vec3, reach float32) (voxel.WorldCoord, bool) {
	r := physics.Raycast(origin, dir, 0, reach, m)
	if !r.Hit || !r.HasAdjacent {
		return voxel.WorldCoord{}, false
	}
	return r.Adjacent, true
}

// SaveAll writes every resident chunk that changed since it was loaded.
func (m *ChunkManager) SaveAll() error {
	defer profiling.Track("world.SaveAll")()
	var errs []error
	for _, c := range m.chunks {
		if err := m.save(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FlushEdits writes every buffered edit bucket to its region regardless of age.
func (m *ChunkManager) FlushEdits() error {
	_, err := m.edits.Drain(m.flushBucket)
	m.stats.pendingBuckets.Store(0)
	return err
}

// Close persists all state and closes the region files.
func (m *ChunkManager) Close() error {
	return errors.Join(m.SaveAll(), m.FlushEdits(), m.opts.Regions.Close())
}

// Stats returns a snapshot of the counters. Safe to call from any goroutine.
func (m *ChunkManager) Stats() Stats {
	return m.stats.snapshot()
}

// ResidentCount returns the number of resident chunks.
func (m *ChunkManager) ResidentCount() int { return len(m.chunks) }

// PendingEditCount returns the number of buffered edits across all buckets.
func (m *ChunkManager) PendingEditCount() int { return m.edits.Edits() }
