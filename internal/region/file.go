package region

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/profiling"
	"chunkvault/internal/voxel"
)

// File is one open region container: the chunks and edit buckets of a
// 32x32x32 cube of chunks. Index tables are kept in memory and written
// through on every change; blobs are only ever appended.
type File struct {
	coord voxel.RegionCoord
	path  string
	f     *os.File
	size  int64
	log   logrus.FieldLogger

	header Header
	chunks [voxel.RegionVolume]ChunkEntry
	metas  [voxel.RegionVolume]MetaEntry
}

// Open opens (creating if needed) the region file for coord inside dir.
// A file whose header or index tables are missing or unreadable is reset to
// an empty region instead of failing.
func Open(dir string, coord voxel.RegionCoord, log logrus.FieldLogger) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create region dir: %w", err)
	}
	path := filepath.Join(dir, FileName(coord))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open region %v: %w", coord, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat region %v: %w", coord, err)
	}

	rf := &File{
		coord: coord,
		path:  path,
		f:     f,
		size:  st.Size(),
		log:   log.WithField("region", coord.String()),
	}

	if err := rf.readIndex(); err != nil {
		if rf.size > 0 {
			rf.log.WithError(err).Warn("region index unreadable, starting empty")
		}
		rf.reset()
		if err := rf.writeIndex(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return rf, nil
}

func (rf *File) readIndex() error {
	if rf.size < DataStart {
		return fmt.Errorf("%w: file is %d bytes, index needs %d", ErrCorrupt, rf.size, DataStart)
	}
	buf := make([]byte, DataStart)
	if _, err := rf.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	h, err := unmarshalHeader(buf[:HeaderSize])
	if err != nil {
		return err
	}
	rf.header = h

	dropped, present := 0, 0
	chunkTable := buf[ChunkTableOffset:MetaTableOffset]
	for i := range rf.chunks {
		e := chunkEntryFrom(chunkTable[i*ChunkEntrySize:])
		if e.Present() && int64(e.Offset)+int64(e.Length) > rf.size {
			e = ChunkEntry{}
			dropped++
		}
		if e.Present() {
			present++
		}
		rf.chunks[i] = e
	}
	metaTable := buf[MetaTableOffset:DataStart]
	for i := range rf.metas {
		e := metaEntryFrom(metaTable[i*MetaEntrySize:])
		if e.Present() && int64(e.Offset)+int64(e.Length) > rf.size {
			e = MetaEntry{PackedCoord: e.PackedCoord}
			dropped++
		}
		rf.metas[i] = e
	}
	if dropped > 0 {
		rf.log.WithField("entries", dropped).Warn("index entries point past end of file, treating as absent")
	}
	// chunkCount always equals the number of present chunk slots
	if int(rf.header.ChunkCount) != present {
		rf.log.WithField("stored", rf.header.ChunkCount).WithField("present", present).Warn("chunk count out of step with index, rewriting header")
		h := rf.header
		h.ChunkCount = uint16(present)
		if err := rf.writeHeader(h); err != nil {
			return err
		}
		rf.header = h
	}
	return nil
}

func (rf *File) reset() {
	rf.header = defaultHeader()
	rf.chunks = [voxel.RegionVolume]ChunkEntry{}
	rf.metas = [voxel.RegionVolume]MetaEntry{}
}

// writeIndex persists the header and both index tables in one write.
func (rf *File) writeIndex() error {
	buf := make([]byte, DataStart)
	copy(buf, rf.header.marshal())
	for i, e := range rf.chunks {
		e.put(buf[ChunkTableOffset+i*ChunkEntrySize:])
	}
	for i, e := range rf.metas {
		e.put(buf[MetaTableOffset+i*MetaEntrySize:])
	}
	if _, err := rf.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write region %v index: %w", rf.coord, err)
	}
	rf.size = max(rf.size, DataStart)
	return nil
}

func (rf *File) writeHeader(h Header) error {
	if _, err := rf.f.WriteAt(h.marshal(), 0); err != nil {
		return fmt.Errorf("write region %v header: %w", rf.coord, err)
	}
	return nil
}

func (rf *File) writeChunkEntry(slot int, e ChunkEntry) error {
	b := make([]byte, ChunkEntrySize)
	e.put(b)
	if _, err := rf.f.WriteAt(b, int64(ChunkTableOffset+slot*ChunkEntrySize)); err != nil {
		return fmt.Errorf("write region %v chunk entry %d: %w", rf.coord, slot, err)
	}
	return nil
}

func (rf *File) writeMetaEntry(slot int) error {
	b := make([]byte, MetaEntrySize)
	rf.metas[slot].put(b)
	if _, err := rf.f.WriteAt(b, int64(MetaTableOffset+slot*MetaEntrySize)); err != nil {
		return fmt.Errorf("write region %v meta entry %d: %w", rf.coord, slot, err)
	}
	return nil
}

// appendBlob writes data at the end of the file and returns its offset.
func (rf *File) appendBlob(data []byte) (uint32, error) {
	off := rf.size
	if off+int64(len(data)) > math.MaxUint32 {
		return 0, fmt.Errorf("region %v: %w", rf.coord, ErrFileFull)
	}
	if _, err := rf.f.WriteAt(data, off); err != nil {
		return 0, fmt.Errorf("append to region %v: %w", rf.coord, err)
	}
	rf.size = off + int64(len(data))
	return uint32(off), nil
}

func (rf *File) readBlob(off, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	n, err := rf.f.ReadAt(buf, int64(off))
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, fmt.Errorf("read region %v blob at %d: %w", rf.coord, off, err)
	}
	return buf, nil
}

// slot returns the table slot for a world chunk coordinate, or
// ErrOutOfRegion when the chunk belongs to another region.
func (rf *File) slot(cc voxel.ChunkCoord) (int, voxel.ChunkCoord, error) {
	o := rf.coord.Origin()
	local := voxel.ChunkCoord{X: cc.X - o.X, Y: cc.Y - o.Y, Z: cc.Z - o.Z}
	if local.X < 0 || local.X >= voxel.RegionSize ||
		local.Y < 0 || local.Y >= voxel.RegionSize ||
		local.Z < 0 || local.Z >= voxel.RegionSize {
		return 0, local, fmt.Errorf("%w: chunk %v, region %v", ErrOutOfRegion, cc, rf.coord)
	}
	return slotIndex(local), local, nil
}

// LoadChunk decodes the stored copy of c.Coord into c. It reports false when
// the slot is empty. Decode failures wrap ErrCorrupt.
func (rf *File) LoadChunk(c *voxel.Chunk) (bool, error) {
	defer profiling.Track("region.LoadChunk")()
	slot, _, err := rf.slot(c.Coord)
	if err != nil {
		return false, err
	}
	e := rf.chunks[slot]
	if !e.Present() {
		return false, nil
	}
	data, err := rf.readBlob(e.Offset, e.Length)
	if err != nil {
		return false, err
	}
	if err := DecodeChunk(data, c); err != nil {
		return false, fmt.Errorf("chunk %v: %w", c.Coord, err)
	}
	c.SetModified(false)
	return true, nil
}

// SaveChunk appends an encoding of c and points its slot at it.
func (rf *File) SaveChunk(c *voxel.Chunk) error {
	defer profiling.Track("region.SaveChunk")()
	slot, _, err := rf.slot(c.Coord)
	if err != nil {
		return err
	}
	data, err := EncodeChunk(c)
	if err != nil {
		return fmt.Errorf("encode chunk %v: %w", c.Coord, err)
	}
	off, err := rf.appendBlob(data)
	if err != nil {
		return err
	}

	// memory follows disk: nothing is committed until both writes succeed
	entry := ChunkEntry{Offset: off, Length: uint32(len(data)), Flags: flagPresent}
	h := rf.header
	if !rf.chunks[slot].Present() {
		h.ChunkCount++
		if err := rf.writeHeader(h); err != nil {
			return err
		}
	}
	if err := rf.writeChunkEntry(slot, entry); err != nil {
		return err
	}
	rf.header = h
	rf.chunks[slot] = entry
	c.SetModified(false)
	return nil
}

// LoadMetaData appends the persisted edits for cc to out and reports whether
// any bucket was stored. A truncated bucket yields the complete records only.
func (rf *File) LoadMetaData(cc voxel.ChunkCoord, out *voxel.MetaBucket) (bool, error) {
	slot, _, err := rf.slot(cc)
	if err != nil {
		return false, err
	}
	e := rf.metas[slot]
	if !e.Present() {
		return false, nil
	}
	data, err := rf.readBlob(e.Offset, e.Length)
	if err != nil {
		return false, err
	}
	edits, truncated := DecodeMeta(data)
	if truncated {
		rf.log.WithField("chunk", cc.String()).Warn("meta bucket truncated, keeping complete edits")
	}
	out.Edits = append(out.Edits, edits...)
	return true, nil
}

// SaveMetaData persists bucket for cc. Edits already stored for the slot are
// kept ahead of the new ones so replay order matches write order.
func (rf *File) SaveMetaData(cc voxel.ChunkCoord, bucket *voxel.MetaBucket) error {
	slot, local, err := rf.slot(cc)
	if err != nil {
		return err
	}
	var merged voxel.MetaBucket
	if _, err := rf.LoadMetaData(cc, &merged); err != nil {
		return err
	}
	merged.Edits = append(merged.Edits, bucket.Edits...)

	data := EncodeMeta(merged.Edits)
	off, err := rf.appendBlob(data)
	if err != nil {
		return err
	}
	rf.metas[slot] = MetaEntry{
		PackedCoord: packLocal(local),
		Offset:      off,
		Length:      uint32(len(data)),
		Flags:       flagPresent,
	}
	return rf.writeMetaEntry(slot)
}

// ClearMetaData marks the bucket slot for cc empty. Used once the stored
// edits have been merged into a loaded chunk.
func (rf *File) ClearMetaData(cc voxel.ChunkCoord) error {
	slot, local, err := rf.slot(cc)
	if err != nil {
		return err
	}
	if !rf.metas[slot].Present() {
		return nil
	}
	rf.metas[slot] = MetaEntry{PackedCoord: packLocal(local)}
	return rf.writeMetaEntry(slot)
}

// ChunkEntry returns the index entry for cc.
func (rf *File) ChunkEntry(cc voxel.ChunkCoord) (ChunkEntry, error) {
	slot, _, err := rf.slot(cc)
	if err != nil {
		return ChunkEntry{}, err
	}
	return rf.chunks[slot], nil
}

// MetaEntry returns the meta index entry for cc.
func (rf *File) MetaEntry(cc voxel.ChunkCoord) (MetaEntry, error) {
	slot, _, err := rf.slot(cc)
	if err != nil {
		return MetaEntry{}, err
	}
	return rf.metas[slot], nil
}

// HasChunk reports whether a chunk is stored for cc.
func (rf *File) HasChunk(cc voxel.ChunkCoord) bool {
	e, err := rf.ChunkEntry(cc)
	return err == nil && e.Present()
}

func (rf *File) Coord() voxel.RegionCoord { return rf.coord }
func (rf *File) Path() string             { return rf.path }
func (rf *File) Header() Header           { return rf.header }
func (rf *File) ChunkCount() int          { return int(rf.header.ChunkCount) }

// Size returns the current file length in bytes.
func (rf *File) Size() int64 { return rf.size }

// Sync flushes the file to stable storage.
func (rf *File) Sync() error {
	return rf.f.Sync()
}

// Close syncs and closes the file. Every write has already gone through, so
// there is no buffered state to flush.
func (rf *File) Close() error {
	if rf.f == nil {
		return nil
	}
	serr := rf.f.Sync()
	cerr := rf.f.Close()
	rf.f = nil
	if cerr != nil {
		return fmt.Errorf("close region %v: %w", rf.coord, cerr)
	}
	if serr != nil {
		return fmt.Errorf("sync region %v: %w", rf.coord, serr)
	}
	return nil
}
