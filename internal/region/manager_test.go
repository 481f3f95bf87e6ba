package region

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"chunkvault/internal/voxel"
)

func newTestManager(t *testing.T, capacity int) *Manager {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	m := NewManager(t.TempDir(), capacity, log)
	t.Cleanup(func() { m.Close() })
	return m
}

func rc(x int32) voxel.RegionCoord { return voxel.RegionCoord{X: x} }

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	m := newTestManager(t, 32)
	for i := int32(0); i < 32; i++ {
		if _, err := m.Open(rc(i)); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}
	if _, err := m.AccessRegion(rc(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(rc(32)); err != nil {
		t.Fatal(err)
	}

	if m.Len() != 32 {
		t.Errorf("Expected 32 open regions, got %d", m.Len())
	}
	if m.FilePresent(rc(1)) {
		t.Errorf("Expected region 1 to be evicted")
	}
	for _, x := range []int32{0, 2, 31, 32} {
		if !m.FilePresent(rc(x)) {
			t.Errorf("Expected region %d to stay cached", x)
		}
	}
	coords := m.Coords()
	if coords[0] != rc(32) || coords[1] != rc(0) {
		t.Errorf("Expected MRU order [32 0 ...], got %v", coords[:2])
	}
}

func TestManagerFilePresentKeepsRecency(t *testing.T) {
	m := newTestManager(t, 3)
	for i := int32(0); i < 3; i++ {
		if _, err := m.Open(rc(i)); err != nil {
			t.Fatal(err)
		}
	}
	if !m.FilePresent(rc(0)) {
		t.Fatal("Expected region 0 to be cached")
	}
	if _, err := m.Open(rc(3)); err != nil {
		t.Fatal(err)
	}
	if m.FilePresent(rc(0)) {
		t.Errorf("FilePresent must not promote: region 0 should have been evicted")
	}
	if diff := cmp.Diff([]voxel.RegionCoord{rc(3), rc(2), rc(1)}, m.Coords()); diff != "" {
		t.Errorf("order differs (-want +got):\n%s", diff)
	}
}

func TestManagerErrors(t *testing.T) {
	m := newTestManager(t, 4)
	if _, err := m.AccessRegion(rc(9)); !errors.Is(err, ErrRegionNotOpen) {
		t.Errorf("Expected ErrRegionNotOpen, got %v", err)
	}

	f, err := m.Open(rc(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AddRegion(f); !errors.Is(err, ErrRegionOpen) {
		t.Errorf("Expected ErrRegionOpen, got %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("duplicate add changed the cache size to %d", m.Len())
	}

	if err := m.RemoveRegion(rc(1)); err != nil {
		t.Fatal(err)
	}
	if m.FilePresent(rc(1)) {
		t.Errorf("Expected region 1 to be removed")
	}
}

func TestManagerEvictedDataSurvives(t *testing.T) {
	m := newTestManager(t, 1)
	f, err := m.Open(rc(0))
	if err != nil {
		t.Fatal(err)
	}
	c := voxel.NewChunk(voxel.ChunkCoord{X: 3})
	c.SetBlock(1, 1, 1, voxel.B(voxel.BlockTypeCobblestone))
	if err := f.SaveChunk(c); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(rc(1)); err != nil {
		t.Fatal(err)
	}
	if m.FilePresent(rc(0)) {
		t.Fatal("Expected region 0 to be evicted")
	}

	f, err = m.Open(rc(0))
	if err != nil {
		t.Fatal(err)
	}
	got := voxel.NewChunk(c.Coord)
	if found, err := f.LoadChunk(got); !found || err != nil {
		t.Fatalf("reload after eviction: found=%v err=%v", found, err)
	}
	if b := got.Block(1, 1, 1); b != voxel.B(voxel.BlockTypeCobblestone) {
		t.Errorf("Expected cobblestone, got %v", b)
	}
}
