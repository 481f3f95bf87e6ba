package region

import (
	"fmt"
	"os"

	"chunkvault/internal/voxel"
)

// Summary describes a region file without opening it for writing.
type Summary struct {
	Path        string
	Size        int64
	Header      Header
	Chunks      int
	Buckets     int
	LiveBytes   int64
	OrphanBytes int64
	Pending     []voxel.ChunkCoord // region-local coordinates with stored edit buckets
	HeaderErr   string
}

// Inspect reads the header and index tables of the file at path.
func Inspect(path string) (Summary, error) {
	s := Summary{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	s.Size = int64(len(data))
	if len(data) < DataStart {
		s.HeaderErr = fmt.Sprintf("file is %d bytes, index needs %d", len(data), DataStart)
		return s, nil
	}
	h, err := unmarshalHeader(data)
	s.Header = h
	if err != nil {
		s.HeaderErr = err.Error()
		return s, nil
	}

	for i := 0; i < voxel.RegionVolume; i++ {
		e := chunkEntryFrom(data[ChunkTableOffset+i*ChunkEntrySize:])
		if e.Present() {
			s.Chunks++
			s.LiveBytes += int64(e.Length)
		}
		m := metaEntryFrom(data[MetaTableOffset+i*MetaEntrySize:])
		if m.Present() {
			s.Buckets++
			s.LiveBytes += int64(m.Length)
			s.Pending = append(s.Pending, unpackLocal(m.PackedCoord))
		}
	}
	s.OrphanBytes = s.Size - DataStart - s.LiveBytes
	return s, nil
}
