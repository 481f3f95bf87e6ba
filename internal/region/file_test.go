package region

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"chunkvault/internal/voxel"
)

func openTest(t *testing.T, dir string, coord voxel.RegionCoord) (*File, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	f, err := Open(dir, coord, log)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, hook
}

func TestNewRegionFirstSave(t *testing.T) {
	dir := t.TempDir()
	f, _ := openTest(t, dir, voxel.RegionCoord{})

	if f.ChunkCount() != 0 {
		t.Fatalf("Expected chunkCount 0, got %d", f.ChunkCount())
	}
	before := f.Size()
	if before != DataStart {
		t.Errorf("Expected fresh file of %d bytes, got %d", DataStart, before)
	}

	c := voxel.NewChunk(voxel.ChunkCoord{})
	c.SetBlock(3, 4, 5, voxel.B(voxel.BlockTypeStone))
	if err := f.SaveChunk(c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.ChunkCount() != 1 {
		t.Errorf("Expected chunkCount 1, got %d", f.ChunkCount())
	}
	e, err := f.ChunkEntry(voxel.ChunkCoord{})
	if err != nil {
		t.Fatal(err)
	}
	if int64(e.Offset) != before {
		t.Errorf("Expected offset %d, got %d", before, e.Offset)
	}
	if !e.Present() {
		t.Errorf("Expected entry to be present")
	}
	if c.IsModified() {
		t.Errorf("saved chunk should no longer be modified")
	}

	st, err := os.Stat(filepath.Join(dir, "r_0.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != before+int64(e.Length) {
		t.Errorf("Expected file size %d, got %d", before+int64(e.Length), st.Size())
	}

	// Saving the same slot again appends and does not bump the count.
	c.SetBlock(0, 0, 0, voxel.B(voxel.BlockTypeDirt))
	if err := f.SaveChunk(c); err != nil {
		t.Fatal(err)
	}
	if f.ChunkCount() != 1 {
		t.Errorf("Expected chunkCount to stay 1, got %d", f.ChunkCount())
	}
	e2, _ := f.ChunkEntry(voxel.ChunkCoord{})
	if int64(e2.Offset) != before+int64(e.Length) {
		t.Errorf("Expected rewrite appended at %d, got %d", before+int64(e.Length), e2.Offset)
	}
}

func TestRegionSaveLoadPersists(t *testing.T) {
	dir := t.TempDir()
	coord := voxel.RegionCoord{X: -1, Y: 0, Z: 2}
	cc := voxel.ChunkCoord{X: -5, Y: 31, Z: 64}

	src := voxel.NewChunk(cc)
	fillChunk(src, func(i int) voxel.Block {
		return voxel.Block{Type: voxel.BlockType(i % 7), Meta: uint8(i % 3)}
	})

	f, err := Open(dir, coord, logrus.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SaveChunk(src); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	f2, _ := openTest(t, dir, coord)
	if f2.ChunkCount() != 1 {
		t.Errorf("Expected chunkCount 1 after reopen, got %d", f2.ChunkCount())
	}
	dst := voxel.NewChunk(cc)
	found, err := f2.LoadChunk(dst)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(chunkBlocks(src), chunkBlocks(dst)); diff != "" {
		t.Errorf("blocks differ (-want +got):\n%s", diff)
	}
	if dst.IsModified() {
		t.Errorf("freshly loaded chunk should not be modified")
	}

	missing := voxel.NewChunk(voxel.ChunkCoord{X: -32, Y: 0, Z: 64})
	if found, err := f2.LoadChunk(missing); found || err != nil {
		t.Errorf("Expected empty slot, got found=%v err=%v", found, err)
	}
}

func TestRegionOutOfBounds(t *testing.T) {
	f, _ := openTest(t, t.TempDir(), voxel.RegionCoord{})

	outside := voxel.NewChunk(voxel.ChunkCoord{X: 32})
	if err := f.SaveChunk(outside); !errors.Is(err, ErrOutOfRegion) {
		t.Errorf("SaveChunk: expected ErrOutOfRegion, got %v", err)
	}
	if _, err := f.LoadChunk(voxel.NewChunk(voxel.ChunkCoord{Y: -1})); !errors.Is(err, ErrOutOfRegion) {
		t.Errorf("LoadChunk: expected ErrOutOfRegion, got %v", err)
	}
	var mb voxel.MetaBucket
	if err := f.SaveMetaData(voxel.ChunkCoord{Z: 40}, &mb); !errors.Is(err, ErrOutOfRegion) {
		t.Errorf("SaveMetaData: expected ErrOutOfRegion, got %v", err)
	}
}

func TestRegionTruncatedFile(t *testing.T) {
	for _, size := range []int64{0, 7, HeaderSize + 100, DataStart - 1} {
		dir := t.TempDir()
		coord := voxel.RegionCoord{}
		f, err := Open(dir, coord, logrus.New())
		if err != nil {
			t.Fatal(err)
		}
		c := voxel.NewChunk(voxel.ChunkCoord{X: 1})
		c.Fill(voxel.B(voxel.BlockTypeStone))
		if err := f.SaveChunk(c); err != nil {
			t.Fatal(err)
		}
		f.Close()

		if err := os.Truncate(filepath.Join(dir, FileName(coord)), size); err != nil {
			t.Fatal(err)
		}

		g, hook := openTest(t, dir, coord)
		if size > 0 && len(hook.Entries) == 0 {
			t.Errorf("size %d: expected a warning for the damaged index", size)
		}
		if g.ChunkCount() != 0 {
			t.Errorf("size %d: expected empty region, chunkCount %d", size, g.ChunkCount())
		}
		for _, cc := range []voxel.ChunkCoord{{X: 1}, {}, {X: 31, Y: 31, Z: 31}} {
			found, err := g.LoadChunk(voxel.NewChunk(cc))
			if found || err != nil {
				t.Errorf("size %d: chunk %v found=%v err=%v", size, cc, found, err)
			}
		}
		if err := g.SaveChunk(c); err != nil {
			t.Errorf("size %d: save after reset: %v", size, err)
		}
		if e, _ := g.ChunkEntry(c.Coord); int64(e.Offset) < DataStart {
			t.Errorf("size %d: blob written inside the index area at %d", size, e.Offset)
		}
	}
}

func TestRegionEntryPastEOFIsAbsent(t *testing.T) {
	dir := t.TempDir()
	coord := voxel.RegionCoord{}
	f, err := Open(dir, coord, logrus.New())
	if err != nil {
		t.Fatal(err)
	}
	c := voxel.NewChunk(voxel.ChunkCoord{})
	c.Fill(voxel.B(voxel.BlockTypeDirt))
	if err := f.SaveChunk(c); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := os.Truncate(filepath.Join(dir, FileName(coord)), DataStart+2); err != nil {
		t.Fatal(err)
	}
	g, hook := openTest(t, dir, coord)
	if found, err := g.LoadChunk(voxel.NewChunk(voxel.ChunkCoord{})); found || err != nil {
		t.Errorf("Expected dangling entry to be absent, got found=%v err=%v", found, err)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("Expected a warning about the dangling entry")
	}
	if g.ChunkCount() != 0 {
		t.Errorf("Expected chunkCount 0 once the dangling entry is dropped, got %d", g.ChunkCount())
	}

	if err := g.SaveChunk(c); err != nil {
		t.Fatal(err)
	}
	if g.ChunkCount() != 1 {
		t.Errorf("Expected chunkCount 1 after re-save, got %d", g.ChunkCount())
	}
	g.Close()

	s, err := Inspect(filepath.Join(dir, FileName(coord)))
	if err != nil {
		t.Fatal(err)
	}
	if s.Header.ChunkCount != 1 || s.Chunks != 1 {
		t.Errorf("Expected stored count 1 matching 1 present slot, got count %d, present %d", s.Header.ChunkCount, s.Chunks)
	}
}

func TestRegionFailedSaveLeavesIndexUntouched(t *testing.T) {
	dir := t.TempDir()
	f, _ := openTest(t, dir, voxel.RegionCoord{})
	c := voxel.NewChunk(voxel.ChunkCoord{X: 3})
	c.Fill(voxel.B(voxel.BlockTypeStone))

	rw := f.f
	ro, err := os.Open(f.Path())
	if err != nil {
		t.Fatal(err)
	}
	f.f = ro
	if err := f.SaveChunk(c); err == nil {
		t.Fatalf("Expected save through a read-only handle to fail")
	}
	if f.ChunkCount() != 0 || f.HasChunk(c.Coord) {
		t.Errorf("failed save changed the index: count %d, present %v", f.ChunkCount(), f.HasChunk(c.Coord))
	}
	if !c.IsModified() {
		t.Errorf("failed save cleared the modified flag")
	}
	ro.Close()
	f.f = rw

	if err := f.SaveChunk(c); err != nil {
		t.Fatal(err)
	}
	if f.ChunkCount() != 1 || !f.HasChunk(c.Coord) {
		t.Errorf("retry: expected count 1 and present slot, got %d, %v", f.ChunkCount(), f.HasChunk(c.Coord))
	}
}

func TestRegionMetaData(t *testing.T) {
	dir := t.TempDir()
	coord := voxel.RegionCoord{}
	cc := voxel.ChunkCoord{X: 4, Y: 5, Z: 6}

	f, _ := openTest(t, dir, coord)
	var got voxel.MetaBucket
	if found, err := f.LoadMetaData(cc, &got); found || err != nil {
		t.Fatalf("Expected no bucket, got found=%v err=%v", found, err)
	}

	first := voxel.MetaBucket{Edits: []voxel.BlockEdit{
		{Pos: voxel.LocalPos{X: 1, Y: 2, Z: 3}, Block: voxel.B(voxel.BlockTypeGlass)},
	}}
	second := voxel.MetaBucket{Edits: []voxel.BlockEdit{
		{Pos: voxel.LocalPos{X: 1, Y: 2, Z: 3}, Block: voxel.B(voxel.BlockTypePlanks)},
		{Pos: voxel.LocalPos{X: 0, Y: 15, Z: 0}, Block: voxel.B(voxel.BlockTypeLeaves)},
	}}
	if err := f.SaveMetaData(cc, &first); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveMetaData(cc, &second); err != nil {
		t.Fatal(err)
	}

	e, _ := f.MetaEntry(cc)
	if e.PackedCoord != 4|5<<5|6<<10 {
		t.Errorf("Expected packed coord %d, got %d", 4|5<<5|6<<10, e.PackedCoord)
	}

	want := append(append([]voxel.BlockEdit{}, first.Edits...), second.Edits...)
	found, err := f.LoadMetaData(cc, &got)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(want, got.Edits); diff != "" {
		t.Errorf("edits differ (-want +got):\n%s", diff)
	}

	if err := f.ClearMetaData(cc); err != nil {
		t.Fatal(err)
	}
	var after voxel.MetaBucket
	if found, _ := f.LoadMetaData(cc, &after); found {
		t.Errorf("Expected cleared bucket to be absent")
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	f, _ := openTest(t, dir, voxel.RegionCoord{})
	c := voxel.NewChunk(voxel.ChunkCoord{X: 2})
	for i := 0; i < 3; i++ {
		c.SetBlock(i, 0, 0, voxel.B(voxel.BlockTypeSand))
		if err := f.SaveChunk(c); err != nil {
			t.Fatal(err)
		}
	}
	mb := voxel.MetaBucket{Edits: []voxel.BlockEdit{{Block: voxel.B(voxel.BlockTypeDirt)}}}
	if err := f.SaveMetaData(voxel.ChunkCoord{Y: 1}, &mb); err != nil {
		t.Fatal(err)
	}

	s, err := Inspect(f.Path())
	if err != nil {
		t.Fatal(err)
	}
	if s.Chunks != 1 || s.Buckets != 1 {
		t.Errorf("Expected 1 chunk and 1 bucket, got %d and %d", s.Chunks, s.Buckets)
	}
	if s.OrphanBytes <= 0 {
		t.Errorf("Expected orphaned bytes from rewrites, got %d", s.OrphanBytes)
	}
	if diff := cmp.Diff([]voxel.ChunkCoord{{Y: 1}}, s.Pending); diff != "" {
		t.Errorf("pending differ (-want +got):\n%s", diff)
	}
}
