package region

import (
	"container/list"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/voxel"
)

// DefaultCapacity is the number of region files kept open at once.
const DefaultCapacity = 32

var (
	// ErrRegionNotOpen is returned by AccessRegion for a region not in the cache.
	ErrRegionNotOpen = errors.New("region: not open")
	// ErrRegionOpen is returned by AddRegion when the coordinate is already cached.
	ErrRegionOpen = errors.New("region: already open")
)

// Manager is a capacity-bounded cache of open region files ordered by
// recency. It owns the files it holds and closes them on eviction.
type Manager struct {
	dir      string
	capacity int
	log      logrus.FieldLogger

	order   *list.List // front is most recently used; values are *File
	entries map[voxel.RegionCoord]*list.Element
}

// NewManager creates a cache for region files stored in dir.
func NewManager(dir string, capacity int, log logrus.FieldLogger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		dir:      dir,
		capacity: capacity,
		log:      log,
		order:    list.New(),
		entries:  make(map[voxel.RegionCoord]*list.Element),
	}
}

// AddRegion inserts f as most recently used, evicting the least recently
// used file when the cache is over capacity.
func (m *Manager) AddRegion(f *File) error {
	if _, ok := m.entries[f.Coord()]; ok {
		return fmt.Errorf("%w: %v", ErrRegionOpen, f.Coord())
	}
	m.entries[f.Coord()] = m.order.PushFront(f)
	for m.order.Len() > m.capacity {
		m.evict(m.order.Back())
	}
	return nil
}

// AccessRegion returns the cached file for coord and promotes it.
func (m *Manager) AccessRegion(coord voxel.RegionCoord) (*File, error) {
	el, ok := m.entries[coord]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrRegionNotOpen, coord)
	}
	m.order.MoveToFront(el)
	return el.Value.(*File), nil
}

// FilePresent reports whether coord is cached without touching recency.
func (m *Manager) FilePresent(coord voxel.RegionCoord) bool {
	_, ok := m.entries[coord]
	return ok
}

// Open returns the cached file for coord, opening and caching it on a miss.
func (m *Manager) Open(coord voxel.RegionCoord) (*File, error) {
	if f, err := m.AccessRegion(coord); err == nil {
		return f, nil
	}
	f, err := Open(m.dir, coord, m.log)
	if err != nil {
		return nil, err
	}
	if err := m.AddRegion(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// RemoveRegion closes and drops coord from the cache.
func (m *Manager) RemoveRegion(coord voxel.RegionCoord) error {
	el, ok := m.entries[coord]
	if !ok {
		return nil
	}
	delete(m.entries, coord)
	m.order.Remove(el)
	return el.Value.(*File).Close()
}

func (m *Manager) evict(el *list.Element) {
	f := el.Value.(*File)
	delete(m.entries, f.Coord())
	m.order.Remove(el)
	if err := f.Close(); err != nil {
		m.log.WithError(err).WithField("region", f.Coord().String()).Error("close evicted region")
		return
	}
	m.log.WithField("region", f.Coord().String()).Debug("evicted region")
}

// Coords returns the cached coordinates from most to least recently used.
func (m *Manager) Coords() []voxel.RegionCoord {
	out := make([]voxel.RegionCoord, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*File).Coord())
	}
	return out
}

// Len returns the number of open files.
func (m *Manager) Len() int { return m.order.Len() }

// Capacity returns the maximum number of open files.
func (m *Manager) Capacity() int { return m.capacity }

// Dir returns the directory region files live in.
func (m *Manager) Dir() string { return m.dir }

// Close closes every cached file.
func (m *Manager) Close() error {
	var errs []error
	for el := m.order.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*File).Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.order.Init()
	m.entries = make(map[voxel.RegionCoord]*list.Element)
	return errors.Join(errs...)
}
